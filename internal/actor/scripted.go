package actor

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/convene/internal/message"
)

// Scripted is an actor that replays a fixed list of lines, one per turn,
// wrapping around when the script is exhausted. It holds its memory handler
// and an optional notice handler as plain fields rather than inheriting
// behavior, keeping each concern behind a narrow interface.
//
// Scripted actors back the CLI demo runner and most tests.
type Scripted struct {
	id      string
	lines   []string
	memory  Memory
	handler Handler

	mu   sync.Mutex
	next int
}

// NewScripted creates a scripted actor. memory may be nil for actors that
// keep no private view.
func NewScripted(id string, memory Memory, lines ...string) *Scripted {
	return &Scripted{id: id, memory: memory, lines: lines}
}

// OnNotice sets the handler invoked for out-of-turn deliveries.
func (s *Scripted) OnNotice(h Handler) { s.handler = h }

// ID implements Actor.
func (s *Scripted) ID() string { return s.id }

// Memory returns the actor's memory handler, or nil.
func (s *Scripted) Memory() Memory { return s.memory }

// TakeTurn implements Actor. The rendered description is ignored beyond
// honoring context cancellation; scripted actors speak regardless of what
// they can see.
func (s *Scripted) TakeTurn(ctx context.Context, description string) (*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.lines) == 0 {
		return nil, fmt.Errorf("actor %s has an empty script", s.id)
	}

	s.mu.Lock()
	line := s.lines[s.next%len(s.lines)]
	s.next++
	s.mu.Unlock()

	return message.New(s.id, line), nil
}

// Reset implements Actor, rewinding the script and clearing memory.
func (s *Scripted) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.next = 0
	s.mu.Unlock()

	if s.memory != nil {
		if err := s.memory.Clear(ctx); err != nil {
			return fmt.Errorf("clearing memory for %s: %w", s.id, err)
		}
	}
	return nil
}
