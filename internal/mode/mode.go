// Package mode holds the process-wide conversational mode switched with
// "/mode <name>".
package mode

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/omochice/alisa-relay/internal/chat"
)

// ErrUnknownMode is returned by Set for a name that is not configured.
var ErrUnknownMode = errors.New("mode: unknown mode")

// Default is the mode active at startup when the catalogue has one.
const Default = "default"

// Builtin is the catalogue used when configuration defines none.
var Builtin = map[string]string{
	"default": "Be friendly and playful. Keep replies short enough to be spoken aloud.",
	"teasing": "Tease the user lightly and with affection. Never be cruel.",
	"calm":    "Speak gently and slowly. Reassure the user.",
	"serious": "Drop the jokes. Answer precisely and stay on topic.",
}

// Registry is the mode catalogue and the active mode. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modes   map[string]string
	current string
}

var _ chat.ModeRegistry = (*Registry)(nil)

// NewRegistry creates a Registry over modes (name to prompt fragment) with
// initial active. An empty initial selects Default.
func NewRegistry(modes map[string]string, initial string) (*Registry, error) {
	if len(modes) == 0 {
		return nil, errors.New("mode: empty catalogue")
	}
	if initial == "" {
		initial = Default
	}
	if _, ok := modes[initial]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, initial)
	}
	m := make(map[string]string, len(modes))
	for k, v := range modes {
		m[k] = v
	}
	return &Registry{modes: m, current: initial}, nil
}

func (r *Registry) Current() chat.Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return chat.Mode{Name: r.current, Prompt: r.modes[r.current]}
}

// Set switches the active mode. Unknown names leave it unchanged.
func (r *Registry) Set(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modes[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	r.current = name
	return nil
}

// Names lists the configured modes in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modes))
	for n := range r.modes {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
