package memory

import (
	"sync"

	"github.com/omochice/alisa-relay/internal/chat"
)

// DefaultShortTermSize is the short-term capacity when none is configured.
const DefaultShortTermSize = 10

// Buffer is the bounded short-term conversation. Once full, appending
// evicts the oldest message.
type Buffer struct {
	mu   sync.Mutex
	size int
	msgs []chat.Message
}

// NewBuffer creates a Buffer holding at most size messages. A size below
// one uses DefaultShortTermSize.
func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = DefaultShortTermSize
	}
	return &Buffer{size: size, msgs: make([]chat.Message, 0, size)}
}

// Append adds msg, evicting the oldest message when full.
func (b *Buffer) Append(msg chat.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) == b.size {
		copy(b.msgs, b.msgs[1:])
		b.msgs = b.msgs[:b.size-1]
	}
	b.msgs = append(b.msgs, msg)
}

// Messages returns a copy of the buffer, oldest first.
func (b *Buffer) Messages() []chat.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]chat.Message(nil), b.msgs...)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}
