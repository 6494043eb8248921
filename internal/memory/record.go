package memory

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/omochice/alisa-relay/internal/chat"
	"github.com/omochice/alisa-relay/internal/emotion"
)

// Record field names.
const (
	fieldEmotion = "emotion"
	fieldText    = "text"
	fieldAt      = "at"
)

// marshalRecord encodes a memory as a protobuf Struct.
func marshalRecord(m chat.Memory) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		fieldEmotion: m.Emotion.String(),
		fieldText:    m.Text,
		fieldAt:      m.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("memory: build record: %w", err)
	}
	return proto.Marshal(s)
}

func unmarshalRecord(data []byte) (chat.Memory, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return chat.Memory{}, fmt.Errorf("memory: decode record: %w", err)
	}
	f := s.GetFields()
	m := chat.Memory{
		Emotion: emotion.Label(f[fieldEmotion].GetStringValue()),
		Text:    f[fieldText].GetStringValue(),
	}
	if at := f[fieldAt].GetStringValue(); at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return chat.Memory{}, fmt.Errorf("memory: decode record time: %w", err)
		}
		m.At = t
	}
	return m, nil
}
