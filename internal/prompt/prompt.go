// Package prompt renders the system prompt that opens every generation
// context.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/omochice/alisa-relay/internal/chat"
	"github.com/omochice/alisa-relay/internal/emotion"
	"github.com/omochice/alisa-relay/internal/presence"
)

// DefaultPersona introduces the assistant when no persona is configured.
const DefaultPersona = "You are Alisa, a desktop companion who chats with the user in real time."

//go:embed system.gotmpl
var defaultTemplate string

var funcs = template.FuncMap{
	"join":         strings.Join,
	"presenceLine": presenceLine,
}

// Option configures a Builder.
type Option func(*Builder) error

// WithPersona replaces DefaultPersona.
func WithPersona(persona string) Option {
	return func(b *Builder) error {
		if persona != "" {
			b.persona = persona
		}
		return nil
	}
}

// WithTemplate replaces the embedded template.
func WithTemplate(text string) Option {
	return func(b *Builder) error {
		tmpl, err := template.New("system").Funcs(funcs).Parse(text)
		if err != nil {
			return fmt.Errorf("prompt: parse template: %w", err)
		}
		b.tmpl = tmpl
		return nil
	}
}

// Builder renders system prompts. It is safe for concurrent use.
type Builder struct {
	persona string
	tmpl    *template.Template
}

var _ chat.PromptBuilder = (*Builder)(nil)

// New creates a Builder.
func New(opts ...Option) (*Builder, error) {
	b := &Builder{
		persona: DefaultPersona,
		tmpl:    template.Must(template.New("system").Funcs(funcs).Parse(defaultTemplate)),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

type data struct {
	Persona  string
	Mode     chat.Mode
	Memories []chat.Memory
	Presence string
	Labels   []string
}

func (b *Builder) Build(mode chat.Mode, memories []chat.Memory, presence string) (string, error) {
	labels := make([]string, len(emotion.Labels))
	for i, l := range emotion.Labels {
		labels[i] = l.String()
	}
	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, data{
		Persona:  b.persona,
		Mode:     mode,
		Memories: memories,
		Presence: presence,
		Labels:   labels,
	})
	if err != nil {
		return "", fmt.Errorf("prompt: render: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func presenceLine(state string) string {
	switch state {
	case presence.Present:
		return "The user is at the screen."
	case presence.Absent:
		return "The user is currently away from the screen."
	case presence.Focused:
		return "The user is looking at the screen and paying attention."
	case presence.Distracted:
		return "The user seems distracted."
	default:
		return fmt.Sprintf("The user's face looks %s.", state)
	}
}
