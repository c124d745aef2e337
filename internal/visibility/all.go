package visibility

import (
	"context"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// AllConfig configures an All policy.
type AllConfig struct {
	// ExcludeSelf removes each actor from its own visible set.
	ExcludeSelf bool `koanf:"exclude_self"`

	// EnforceReciprocal validates b ∈ visible(a) ⇔ a ∈ visible(b) after
	// every refresh.
	EnforceReciprocal bool `koanf:"enforce_reciprocal"`
}

// All makes every actor visible to every other actor.
type All struct {
	cfg AllConfig
}

// NewAll creates an all-visibility policy.
func NewAll(cfg AllConfig) *All {
	return &All{cfg: cfg}
}

// Refresh implements env.Visibility.
func (a *All) Refresh(ctx context.Context, st *env.State, vm *env.VisibilityMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	roster := st.Roster()
	for _, id := range roster {
		targets := make([]string, 0, len(roster))
		for _, other := range roster {
			if a.cfg.ExcludeSelf && other == id {
				continue
			}
			targets = append(targets, other)
		}
		vm.Set(id, targets)
	}

	if a.cfg.EnforceReciprocal {
		return vm.ValidateReciprocal()
	}
	return nil
}
