package chat

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/omochice/alisa-relay/internal/emotion"
)

// Sentinel errors.
var (
	// ErrConnectionLost is returned when a send or receive fails on a
	// connection, or the connection is no longer registered.
	ErrConnectionLost = errors.New("chat: connection lost")

	// ErrDuplicateConnection is returned by Registry.Add for a connection
	// that is already registered.
	ErrDuplicateConnection = errors.New("chat: duplicate connection")

	// ErrGenerationFailed is returned when the generator's stream fails.
	ErrGenerationFailed = errors.New("chat: generation failed")
)

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of the generation context.
type Message struct {
	Role    Role
	Content string
}

// Memory is a long-term memory: a past reply and the emotion it carried.
type Memory struct {
	Emotion emotion.Label
	Text    string
	At      time.Time
}

// Mode is a named conversational configuration.
type Mode struct {
	Name   string
	Prompt string
}

// Generator streams text fragments for a generation context. The sequence
// is finite and cannot be restarted; an error ends it.
type Generator interface {
	Stream(ctx context.Context, messages []Message) iter.Seq2[string, error]
}

// MemoryStore holds the short-term conversation and long-term memories.
type MemoryStore interface {
	// Append adds a message to the short-term buffer.
	Append(ctx context.Context, msg Message) error
	// History returns the short-term buffer, oldest first.
	History(ctx context.Context) ([]Message, error)
	// Recall returns up to n recent long-term memories, oldest first.
	Recall(ctx context.Context, n int) ([]Memory, error)
	// Remember persists a long-term memory.
	Remember(ctx context.Context, m Memory) error
}

// PromptBuilder assembles the system prompt for a turn.
type PromptBuilder interface {
	Build(mode Mode, memories []Memory, presence string) (string, error)
}

// ModeRegistry holds the active mode.
type ModeRegistry interface {
	Current() Mode
	Set(name string) error
}

// Presence tracks what the vision process last reported about the user.
type Presence interface {
	Update(state string)
	Current() string
}
