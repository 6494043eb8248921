// Package protocol defines the text frames exchanged between the relay and
// its clients.
//
// Frames carry no length prefix: one websocket text message is one frame.
// Control and content share the channel and are told apart by prefix.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Wire markers.
const (
	ModeCommandPrefix = "/mode"
	PresencePrefix    = "[VISION_FACE]"
	EmotionPrefix     = "[EMOTION]"
	ErrorPrefix       = "[ERROR]"
	EndMarker         = "[END]"
	ModeChangedMarker = "[MODE CHANGED]"
)

// ErrInvalidCommand is returned when a control frame lacks a required
// argument.
var ErrInvalidCommand = errors.New("protocol: invalid command")

// InboundKind represents the kind of a client frame.
type InboundKind int

const (
	InboundUserText InboundKind = iota
	InboundModeCommand
	InboundPresence
)

// String returns the string representation of InboundKind
func (k InboundKind) String() string {
	switch k {
	case InboundUserText:
		return "USER_TEXT"
	case InboundModeCommand:
		return "MODE_COMMAND"
	case InboundPresence:
		return "PRESENCE"
	default:
		return "UNKNOWN"
	}
}

// Inbound is a classified client frame. Text holds the user text, the mode
// name or the presence state depending on Kind.
type Inbound struct {
	Kind InboundKind
	Text string
}

// ParseInbound classifies a raw client frame.
//
// "/mode <name>" switches modes, "[VISION_FACE]<state>" is a presence
// report from the vision process, and anything else is a conversational
// turn. A command without its argument fails with ErrInvalidCommand.
func ParseInbound(text string) (Inbound, error) {
	if rest, ok := cutCommand(text, ModeCommandPrefix); ok {
		args := strings.Fields(rest)
		switch len(args) {
		case 0:
			return Inbound{}, fmt.Errorf("%w: %s requires a mode name", ErrInvalidCommand, ModeCommandPrefix)
		case 1:
			return Inbound{Kind: InboundModeCommand, Text: args[0]}, nil
		default:
			return Inbound{}, fmt.Errorf("%w: %s takes exactly one mode name", ErrInvalidCommand, ModeCommandPrefix)
		}
	}
	if state, ok := strings.CutPrefix(text, PresencePrefix); ok {
		state = strings.TrimSpace(state)
		if state == "" {
			return Inbound{}, fmt.Errorf("%w: %s requires a state", ErrInvalidCommand, PresencePrefix)
		}
		return Inbound{Kind: InboundPresence, Text: state}, nil
	}
	return Inbound{Kind: InboundUserText, Text: text}, nil
}

// cutCommand reports whether text is the command word followed by
// whitespace or nothing, so "/modern art" stays a user turn.
func cutCommand(text, command string) (string, bool) {
	rest, ok := strings.CutPrefix(text, command)
	if !ok {
		return "", false
	}
	if rest != "" && !strings.ContainsAny(rest[:1], " \t\r\n") {
		return "", false
	}
	return rest, true
}

// OutboundKind represents the kind of a server frame.
type OutboundKind int

const (
	OutboundToken OutboundKind = iota
	OutboundEmotion
	OutboundEnd
	OutboundModeChanged
	OutboundError
)

// String returns the string representation of OutboundKind
func (k OutboundKind) String() string {
	switch k {
	case OutboundToken:
		return "TOKEN"
	case OutboundEmotion:
		return "EMOTION"
	case OutboundEnd:
		return "END"
	case OutboundModeChanged:
		return "MODE_CHANGED"
	case OutboundError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Outbound is a server frame. Text holds the token, the emotion label or
// the error reason depending on Kind.
type Outbound struct {
	Kind OutboundKind
	Text string
}

// Token returns a frame carrying one generated fragment.
func Token(text string) Outbound { return Outbound{Kind: OutboundToken, Text: text} }

// EmotionTag returns the frame announcing the reply's emotion label.
func EmotionTag(label string) Outbound { return Outbound{Kind: OutboundEmotion, Text: label} }

// End returns the frame that closes a turn or a command reply.
func End() Outbound { return Outbound{Kind: OutboundEnd} }

// ModeChanged returns the acknowledgment for a mode switch.
func ModeChanged() Outbound { return Outbound{Kind: OutboundModeChanged} }

// Error returns a frame reporting a failed command or turn.
func Error(reason string) Outbound { return Outbound{Kind: OutboundError, Text: reason} }

// Encode renders the frame as it goes on the wire.
func (f Outbound) Encode() []byte {
	switch f.Kind {
	case OutboundEmotion:
		return []byte(EmotionPrefix + f.Text)
	case OutboundEnd:
		return []byte(EndMarker)
	case OutboundModeChanged:
		return []byte(ModeChangedMarker)
	case OutboundError:
		return []byte(ErrorPrefix + f.Text)
	default:
		return []byte(f.Text)
	}
}

// String returns the wire form of the frame.
func (f Outbound) String() string {
	return string(f.Encode())
}

// ParseOutbound decodes a server frame on the client side. Anything that is
// not a known marker is a token.
func ParseOutbound(data []byte) Outbound {
	text := string(data)
	switch {
	case text == EndMarker:
		return End()
	case text == ModeChangedMarker:
		return ModeChanged()
	case strings.HasPrefix(text, EmotionPrefix):
		return EmotionTag(strings.TrimPrefix(text, EmotionPrefix))
	case strings.HasPrefix(text, ErrorPrefix):
		return Error(strings.TrimPrefix(text, ErrorPrefix))
	default:
		return Token(text)
	}
}
