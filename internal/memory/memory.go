// Package memory keeps the conversation: a bounded short-term buffer fed
// into every generation context, and long-term memories of past replies
// recalled into the system prompt.
package memory

import (
	"context"

	"github.com/omochice/alisa-relay/internal/chat"
)

// Store combines a short-term Buffer and a LongTerm into a chat.MemoryStore.
type Store struct {
	short *Buffer
	long  *LongTerm
}

var _ chat.MemoryStore = (*Store)(nil)

// NewStore creates a Store.
func NewStore(short *Buffer, long *LongTerm) *Store {
	return &Store{short: short, long: long}
}

func (s *Store) Append(_ context.Context, msg chat.Message) error {
	s.short.Append(msg)
	return nil
}

func (s *Store) History(context.Context) ([]chat.Message, error) {
	return s.short.Messages(), nil
}

func (s *Store) Recall(ctx context.Context, n int) ([]chat.Memory, error) {
	return s.long.Recent(ctx, n)
}

func (s *Store) Remember(ctx context.Context, m chat.Memory) error {
	return s.long.Save(ctx, m)
}
