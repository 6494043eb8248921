package llm

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"time"

	"github.com/omochice/alisa-relay/internal/chat"
	"github.com/omochice/alisa-relay/internal/config"
)

// ErrScripted is the failure injected by a Script configured with
// FailAfter.
var ErrScripted = errors.New("llm: scripted failure")

// Script replays configured replies word by word without calling a model.
// Replies are used in rotation; with none configured it echoes the last
// user message.
type Script struct {
	replies   []string
	delay     time.Duration
	failAfter int
	calls     atomic.Int64
}

var _ chat.Generator = (*Script)(nil)

func NewScript(cfg config.Script) *Script {
	return &Script{
		replies:   cfg.Replies,
		delay:     cfg.Delay,
		failAfter: cfg.FailAfter,
	}
}

func (s *Script) Stream(ctx context.Context, messages []chat.Message) iter.Seq2[string, error] {
	reply := s.next(messages)
	return func(yield func(string, error) bool) {
		for i, tok := range Words(reply) {
			if s.failAfter > 0 && i == s.failAfter {
				yield("", ErrScripted)
				return
			}
			if s.delay > 0 {
				select {
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				case <-time.After(s.delay):
				}
			}
			if !yield(tok, nil) {
				return
			}
		}
	}
}

func (s *Script) next(messages []chat.Message) string {
	n := s.calls.Add(1) - 1
	if len(s.replies) > 0 {
		return s.replies[int(n)%len(s.replies)]
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleUser {
			return "<emotion=neutral> You said: " + messages[i].Content
		}
	}
	return "<emotion=neutral> ..."
}

// Words splits text into fragments that concatenate back to text: the
// first word, then each following word with its leading whitespace.
func Words(text string) []string {
	var out []string
	start := 0
	prevSpace := true
	for i, r := range text {
		space := r == ' ' || r == '\n' || r == '\t'
		if space && !prevSpace {
			out = append(out, text[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
