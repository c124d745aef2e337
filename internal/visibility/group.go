package visibility

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// GroupConfig configures a Group policy.
type GroupConfig struct {
	// Groups partitions the roster into named, non-overlapping groups.
	Groups map[string][]string `koanf:"groups"`

	// Links declares which other groups each group may observe, by name.
	Links map[string][]string `koanf:"links"`

	// Transitive extends links through intermediate groups.
	Transitive bool `koanf:"transitive"`
}

// Group restricts visibility to an actor's own group plus the members of
// groups its group declares visible.
type Group struct {
	cfg     GroupConfig
	groupOf map[string]string
}

// NewGroup creates a group policy, rejecting overlapping memberships and
// links to undeclared groups.
func NewGroup(cfg GroupConfig) (*Group, error) {
	groupOf := make(map[string]string)
	for name, members := range cfg.Groups {
		for _, id := range members {
			if prev, ok := groupOf[id]; ok {
				return nil, fmt.Errorf("actor %s in both groups %s and %s: %w",
					id, prev, name, env.ErrRuleValidation)
			}
			groupOf[id] = name
		}
	}
	for from, targets := range cfg.Links {
		if _, ok := cfg.Groups[from]; !ok {
			return nil, fmt.Errorf("link from undeclared group %s: %w", from, env.ErrRuleValidation)
		}
		for _, to := range targets {
			if _, ok := cfg.Groups[to]; !ok {
				return nil, fmt.Errorf("link from %s to undeclared group %s: %w",
					from, to, env.ErrRuleValidation)
			}
		}
	}
	return &Group{cfg: cfg, groupOf: groupOf}, nil
}

// Refresh implements env.Visibility. Actors outside every group see only
// themselves.
func (g *Group) Refresh(ctx context.Context, st *env.State, vm *env.VisibilityMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rosterSet := make(map[string]struct{})
	roster := st.Roster()
	for _, id := range roster {
		rosterSet[id] = struct{}{}
	}

	for _, id := range roster {
		group, ok := g.groupOf[id]
		if !ok {
			vm.Set(id, []string{id})
			continue
		}

		targets := make(map[string]struct{})
		for _, visGroup := range g.visibleGroups(group) {
			for _, member := range g.cfg.Groups[visGroup] {
				if _, ok := rosterSet[member]; ok {
					targets[member] = struct{}{}
				}
			}
		}

		out := make([]string, 0, len(targets))
		for t := range targets {
			out = append(out, t)
		}
		vm.Set(id, out)
	}
	return nil
}

// visibleGroups returns the group itself plus its linked groups, expanded
// transitively when configured.
func (g *Group) visibleGroups(group string) []string {
	seen := map[string]struct{}{group: {}}
	queue := []string{group}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, linked := range g.cfg.Links[cur] {
			if _, ok := seen[linked]; ok {
				continue
			}
			seen[linked] = struct{}{}
			if g.cfg.Transitive {
				queue = append(queue, linked)
			}
		}
		if !g.cfg.Transitive {
			break
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	return out
}
