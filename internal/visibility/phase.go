package visibility

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/convene/internal/env"
	"github.com/fyrsmithlabs/convene/internal/message"
)

// PhaseName identifies the two phases of the blind-judge policy.
type PhaseName string

const (
	PhaseFull  PhaseName = "full"
	PhaseBlind PhaseName = "blind"
)

// PhaseConfig configures a Phase policy.
type PhaseConfig struct {
	// BlindFinalTurns is how many turns before the horizon the roster
	// goes blind. Default: 1
	BlindFinalTurns int `koanf:"blind_final_turns"`

	// ExcludeSelf applies to the full phase.
	ExcludeSelf bool `koanf:"exclude_self"`
}

// ApplyDefaults sets default values for unset fields.
func (c *PhaseConfig) ApplyDefaults() {
	if c.BlindFinalTurns == 0 {
		c.BlindFinalTurns = 1
	}
}

// Phase toggles between full visibility and self-only visibility based on
// how many turns remain before the configured horizon. Each transition is
// announced to every actor with a broadcast notice; the change applies only
// to turns dispatched after it.
type Phase struct {
	cfg   PhaseConfig
	full  *All
	blind *SelfOnly

	mu      sync.Mutex
	current PhaseName
	started bool
	notices []*message.Message
}

// NewPhase creates a phase policy.
func NewPhase(cfg PhaseConfig) *Phase {
	cfg.ApplyDefaults()
	return &Phase{
		cfg:   cfg,
		full:  NewAll(AllConfig{ExcludeSelf: cfg.ExcludeSelf}),
		blind: NewSelfOnly(SelfOnlyConfig{}),
	}
}

// Phase returns the phase currently in effect.
func (p *Phase) Phase() PhaseName {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Refresh implements env.Visibility.
func (p *Phase) Refresh(ctx context.Context, st *env.State, vm *env.VisibilityMap) error {
	next := PhaseFull
	if max := st.MaxTurns(); max > 0 && max-st.Turn() <= p.cfg.BlindFinalTurns {
		next = PhaseBlind
	}

	p.mu.Lock()
	if !p.started {
		p.started = true
		p.current = next
	} else if next != p.current {
		p.current = next
		p.notices = append(p.notices, message.NewSystem(
			fmt.Sprintf("visibility phase changed to %s", next)))
	}
	p.mu.Unlock()

	if next == PhaseBlind {
		return p.blind.Refresh(ctx, st, vm)
	}
	return p.full.Refresh(ctx, st, vm)
}

// DrainNotices implements env.NoticeSource, returning and clearing pending
// phase-transition notices.
func (p *Phase) DrainNotices() []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.notices
	p.notices = nil
	return out
}
