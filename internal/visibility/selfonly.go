package visibility

import (
	"context"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// SelfOnlyConfig configures a SelfOnly policy.
type SelfOnlyConfig struct {
	// SystemSender is an additional id every actor may observe. It is
	// only included while it participates in the roster, keeping the
	// subset-of-roster invariant intact.
	SystemSender string `koanf:"system_sender"`
}

// SelfOnly restricts each actor to observing only itself.
type SelfOnly struct {
	cfg SelfOnlyConfig
}

// NewSelfOnly creates a self-only policy.
func NewSelfOnly(cfg SelfOnlyConfig) *SelfOnly {
	return &SelfOnly{cfg: cfg}
}

// Refresh implements env.Visibility.
func (s *SelfOnly) Refresh(ctx context.Context, st *env.State, vm *env.VisibilityMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	includeSystem := s.cfg.SystemSender != "" && st.InRoster(s.cfg.SystemSender)
	for _, id := range st.Roster() {
		targets := []string{id}
		if includeSystem && id != s.cfg.SystemSender {
			targets = append(targets, s.cfg.SystemSender)
		}
		vm.Set(id, targets)
	}
	return nil
}
