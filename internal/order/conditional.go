package order

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// BranchDecision records which branch a conditional order took on a turn.
type BranchDecision struct {
	Turn   int  `json:"turn"`
	Branch bool `json:"branch"`
}

// Conditional evaluates a predicate over the current state and routes to one
// of two nested order strategies, keeping an audit trail of branches taken.
type Conditional struct {
	predicate func(st *env.State) bool
	ifTrue    env.Order
	ifFalse   env.Order

	mu    sync.Mutex
	last  env.Order
	audit []BranchDecision
}

// NewConditional creates a conditional order. ifFalse may be nil, in which
// case the false branch yields no candidates.
func NewConditional(predicate func(st *env.State) bool, ifTrue, ifFalse env.Order) (*Conditional, error) {
	if predicate == nil {
		return nil, fmt.Errorf("conditional order needs a predicate: %w", env.ErrConfiguration)
	}
	if ifTrue == nil {
		return nil, fmt.Errorf("conditional order needs a true branch: %w", env.ErrConfiguration)
	}
	return &Conditional{predicate: predicate, ifTrue: ifTrue, ifFalse: ifFalse}, nil
}

// Next implements env.Order.
func (c *Conditional) Next(ctx context.Context, st *env.State) ([]string, error) {
	branch := c.predicate(st)

	c.mu.Lock()
	c.audit = append(c.audit, BranchDecision{Turn: st.Turn(), Branch: branch})
	var target env.Order
	if branch {
		target = c.ifTrue
	} else {
		target = c.ifFalse
	}
	c.last = target
	c.mu.Unlock()

	if target == nil {
		return nil, nil
	}
	return target.Next(ctx, st)
}

// ObserveBatch implements env.BatchObserver, forwarding to the branch that
// produced the observed batch.
func (c *Conditional) ObserveBatch(succeeded, failed int) {
	c.mu.Lock()
	target := c.last
	c.mu.Unlock()

	if bo, ok := target.(env.BatchObserver); ok {
		bo.ObserveBatch(succeeded, failed)
	}
}

// Audit returns a copy of the branch decisions taken so far.
func (c *Conditional) Audit() []BranchDecision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]BranchDecision(nil), c.audit...)
}
