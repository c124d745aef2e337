package env

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/convene/internal/actor"
	"github.com/fyrsmithlabs/convene/internal/message"
)

// Order decides which actors act in the next turn. An empty result means no
// candidates are available this turn; errors are reserved for true faults.
type Order interface {
	Next(ctx context.Context, st *State) ([]string, error)
}

// BatchObserver is implemented by order strategies that adapt their batch
// size to recent turn outcomes. The environment reports after every gather.
type BatchObserver interface {
	ObserveBatch(succeeded, failed int)
}

// Visibility recomputes the visibility map for the current turn.
type Visibility interface {
	Refresh(ctx context.Context, st *State, vm *VisibilityMap) error
}

// NoticeSource is implemented by visibility policies that emit broadcast
// notices on internal transitions, such as phase flips. Drained notices are
// committed to every actor before the turn is dispatched.
type NoticeSource interface {
	DrainNotices() []*message.Message
}

// Outcome is the tagged result of one actor's turn. Exactly one of Message
// and Err is meaningful.
type Outcome struct {
	ActorID string
	Message *message.Message
	Err     error
	Elapsed time.Duration
}

// Failed reports whether the turn produced an error instead of a message.
func (o Outcome) Failed() bool { return o.Err != nil }

// Selector filters the raw outcomes of a turn down to the accepted messages.
type Selector interface {
	Select(ctx context.Context, outcomes []Outcome) ([]*message.Message, error)
}

// Updater commits accepted messages to global history and to each
// recipient's memory.
type Updater interface {
	Commit(ctx context.Context, accepted []*message.Message, e *Environment) error
}

// ActorView is everything a describer may draw on when rendering context for
// one actor: only what that actor can see.
type ActorView struct {
	ActorID    string
	State      *State
	Visibility *VisibilityMap
	Memory     actor.Memory
}

// Describer renders the context description handed to an actor's turn.
type Describer interface {
	Describe(ctx context.Context, view *ActorView) (string, error)
}

// Rule composes one order, visibility, selector, updater and describer into
// a single policy bundle driving the environment.
type Rule struct {
	Order      Order
	Visibility Visibility
	Selector   Selector
	Updater    Updater
	Describer  Describer

	// Done optionally reports task-specific completion on top of the
	// max-turn bound.
	Done func(st *State) bool
}

// Validate checks that all required components are present.
func (r *Rule) Validate() error {
	switch {
	case r.Order == nil:
		return fmt.Errorf("rule missing order: %w", ErrRuleValidation)
	case r.Visibility == nil:
		return fmt.Errorf("rule missing visibility: %w", ErrRuleValidation)
	case r.Selector == nil:
		return fmt.Errorf("rule missing selector: %w", ErrRuleValidation)
	case r.Updater == nil:
		return fmt.Errorf("rule missing updater: %w", ErrRuleValidation)
	case r.Describer == nil:
		return fmt.Errorf("rule missing describer: %w", ErrRuleValidation)
	}
	return nil
}
