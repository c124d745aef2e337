package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/convene/internal/message"
)

// DefaultBufferCapacity bounds a Buffer when no capacity is given.
const DefaultBufferCapacity = 1000

// Buffer is a bounded in-memory message store. When capacity is exceeded the
// oldest messages are dropped. Search is a case-insensitive substring match,
// newest matches first.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	msgs     []*message.Message
}

// NewBuffer creates a buffer with the given capacity. capacity <= 0 uses
// DefaultBufferCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{capacity: capacity}
}

// AddMessages implements actor.Memory.
func (b *Buffer) AddMessages(ctx context.Context, msgs []*message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.msgs = append(b.msgs, msgs...)
	if overflow := len(b.msgs) - b.capacity; overflow > 0 {
		b.msgs = append([]*message.Message(nil), b.msgs[overflow:]...)
	}
	return nil
}

// Search implements actor.Memory. An empty query returns the most recent
// messages.
func (b *Buffer) Search(ctx context.Context, query string, limit int) ([]*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 {
		limit = len(b.msgs)
	}

	needle := strings.ToLower(query)
	var out []*message.Message
	for i := len(b.msgs) - 1; i >= 0 && len(out) < limit; i-- {
		m := b.msgs[i]
		if needle == "" || strings.Contains(strings.ToLower(m.Content), needle) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Clear implements actor.Memory.
func (b *Buffer) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	b.msgs = nil
	b.mu.Unlock()
	return nil
}

// Len returns the number of stored messages.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.msgs)
}
