// Package actor defines the collaborator interfaces the coordination core
// depends on. The core never inspects how an actor produces its output.
package actor

import (
	"context"

	"github.com/fyrsmithlabs/convene/internal/message"
)

// Actor is one autonomous participant. TakeTurn receives a rendered context
// description and returns a single message or an error; the error is captured
// as a tagged per-actor failure, never aborting sibling turns.
type Actor interface {
	// ID returns the stable roster identity of the actor.
	ID() string

	// TakeTurn produces the actor's output for one turn.
	TakeTurn(ctx context.Context, description string) (*message.Message, error)

	// Reset clears any internal state between simulations.
	Reset(ctx context.Context) error
}

// Memory is an actor's private view of accepted messages.
type Memory interface {
	// AddMessages appends messages to the memory.
	AddMessages(ctx context.Context, msgs []*message.Message) error

	// Search returns up to limit messages relevant to the query,
	// most relevant first.
	Search(ctx context.Context, query string, limit int) ([]*message.Message, error)

	// Clear removes all stored messages.
	Clear(ctx context.Context) error
}

// Handler consumes messages delivered to an actor outside its own turn,
// such as visibility phase notices.
type Handler interface {
	Handle(ctx context.Context, msg *message.Message) error
}
