package protocol_test

import (
	"errors"
	"testing"

	"github.com/omochice/alisa-relay/pkg/protocol"
)

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    protocol.Inbound
		wantErr error
	}{
		{
			name:  "mode command",
			input: "/mode teasing",
			want:  protocol.Inbound{Kind: protocol.InboundModeCommand, Text: "teasing"},
		},
		{
			name:  "mode command with extra whitespace",
			input: "/mode   calm \n",
			want:  protocol.Inbound{Kind: protocol.InboundModeCommand, Text: "calm"},
		},
		{
			name:    "mode command without name",
			input:   "/mode",
			wantErr: protocol.ErrInvalidCommand,
		},
		{
			name:    "mode command with blank name",
			input:   "/mode   ",
			wantErr: protocol.ErrInvalidCommand,
		},
		{
			name:    "mode command with two names",
			input:   "/mode calm serious",
			wantErr: protocol.ErrInvalidCommand,
		},
		{
			name:  "word starting with the command stays user text",
			input: "/modern art is weird",
			want:  protocol.Inbound{Kind: protocol.InboundUserText, Text: "/modern art is weird"},
		},
		{
			name:  "presence report",
			input: "[VISION_FACE]distracted",
			want:  protocol.Inbound{Kind: protocol.InboundPresence, Text: "distracted"},
		},
		{
			name:    "presence report without state",
			input:   "[VISION_FACE]",
			wantErr: protocol.ErrInvalidCommand,
		},
		{
			name:  "user text",
			input: "hello there",
			want:  protocol.Inbound{Kind: protocol.InboundUserText, Text: "hello there"},
		},
		{
			name:  "empty user text",
			input: "",
			want:  protocol.Inbound{Kind: protocol.InboundUserText, Text: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.ParseInbound(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseInbound(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInbound(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseInbound(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestOutbound_Encode(t *testing.T) {
	tests := []struct {
		frame protocol.Outbound
		want  string
	}{
		{protocol.Token("Hel"), "Hel"},
		{protocol.Token(""), ""},
		{protocol.EmotionTag("happy"), "[EMOTION]happy"},
		{protocol.End(), "[END]"},
		{protocol.ModeChanged(), "[MODE CHANGED]"},
		{protocol.Error("unknown mode"), "[ERROR]unknown mode"},
	}

	for _, tt := range tests {
		t.Run(tt.frame.Kind.String(), func(t *testing.T) {
			if got := string(tt.frame.Encode()); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseOutbound(t *testing.T) {
	tests := []struct {
		input string
		want  protocol.Outbound
	}{
		{"[END]", protocol.End()},
		{"[MODE CHANGED]", protocol.ModeChanged()},
		{"[EMOTION]sad", protocol.EmotionTag("sad")},
		{"[ERROR]generation failed", protocol.Error("generation failed")},
		{" world", protocol.Token(" world")},
		{"[END] but more", protocol.Token("[END] but more")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := protocol.ParseOutbound([]byte(tt.input)); got != tt.want {
				t.Errorf("ParseOutbound(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	if got := protocol.InboundKind(99).String(); got != "UNKNOWN" {
		t.Errorf("InboundKind(99).String() = %q, want UNKNOWN", got)
	}
	if got := protocol.OutboundKind(99).String(); got != "UNKNOWN" {
		t.Errorf("OutboundKind(99).String() = %q, want UNKNOWN", got)
	}
}
