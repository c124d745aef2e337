package env

import (
	"errors"
	"fmt"
)

// Errors for environment operations.
var (
	// ErrInvalidState marks operations attempted in a status that does
	// not allow them, including invalid status transitions.
	ErrInvalidState = errors.New("invalid environment state")

	// ErrRuleValidation marks a malformed policy bundle.
	ErrRuleValidation = errors.New("invalid rule configuration")

	// ErrAction marks a failed turn, order, visibility, selector or
	// updater operation.
	ErrAction = errors.New("action failed")

	// ErrConcurrency marks a violated concurrency constraint.
	ErrConcurrency = errors.New("concurrency violation")

	// ErrConfiguration marks an invalid environment configuration.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnknownActor marks a reference to an actor not in the roster.
	ErrUnknownActor = errors.New("actor not in roster")

	// ErrUnknownReceiver marks a message addressed to an id not in the
	// roster.
	ErrUnknownReceiver = errors.New("receiver not in roster")
)

// StepError wraps a stage failure with the turn and stage it occurred in.
type StepError struct {
	Turn  int
	Stage string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step failed at turn %d, stage %s: %v", e.Turn, e.Stage, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
