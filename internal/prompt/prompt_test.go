package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/alisa-relay/internal/chat"
	"github.com/omochice/alisa-relay/internal/emotion"
	"github.com/omochice/alisa-relay/internal/prompt"
)

func TestBuilder_Build(t *testing.T) {
	b, err := prompt.New()
	require.NoError(t, err)

	got, err := b.Build(
		chat.Mode{Name: "teasing", Prompt: "Tease the user."},
		[]chat.Memory{
			{Emotion: emotion.Happy, Text: "You finished the report!"},
			{Emotion: emotion.Sad, Text: "Sorry about the rain."},
		},
		"absent",
	)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, prompt.DefaultPersona), got)
	assert.Contains(t, got, "Current mode: teasing.\nTease the user.")
	assert.Contains(t, got, "The user is currently away from the screen.")
	assert.Contains(t, got, "- (happy) You finished the report!\n- (sad) Sorry about the rain.")
	assert.Contains(t, got, "<emotion=happy>")
	assert.Contains(t, got, "teasing, calm, serious, happy, sad, neutral")
}

func TestBuilder_Build_Minimal(t *testing.T) {
	b, err := prompt.New(prompt.WithPersona("You are a test."))
	require.NoError(t, err)

	got, err := b.Build(chat.Mode{Name: "default"}, nil, "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "You are a test."))
	assert.NotContains(t, got, "remember")
	assert.NotContains(t, got, "The user")
}

func TestBuilder_Presence(t *testing.T) {
	b, err := prompt.New()
	require.NoError(t, err)

	tests := []struct {
		state string
		want  string
	}{
		{"present", "The user is at the screen."},
		{"focused", "paying attention"},
		{"distracted", "The user seems distracted."},
		{"surprised", "The user's face looks surprised."},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got, err := b.Build(chat.Mode{Name: "default"}, nil, tt.state)
			require.NoError(t, err)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestWithTemplate(t *testing.T) {
	b, err := prompt.New(prompt.WithTemplate("{{ .Mode.Name }}|{{ len .Memories }}|{{ .Presence }}"))
	require.NoError(t, err)

	got, err := b.Build(chat.Mode{Name: "calm"}, []chat.Memory{{Text: "x"}}, "present")
	require.NoError(t, err)
	assert.Equal(t, "calm|1|present", got)
}

func TestWithTemplate_Invalid(t *testing.T) {
	_, err := prompt.New(prompt.WithTemplate("{{ .Mode.Name"))
	assert.Error(t, err)
}
