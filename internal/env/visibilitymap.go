package env

import (
	"fmt"
	"sort"
	"sync"
)

// VisibilityMap maps each actor id to the set of actor ids it may currently
// observe. Policies rewrite it during the visibility stage of a step; actor
// tasks only read it through their rendered context, never directly.
type VisibilityMap struct {
	mu      sync.RWMutex
	visible map[string]map[string]struct{}
}

// NewVisibilityMap creates an empty map.
func NewVisibilityMap() *VisibilityMap {
	return &VisibilityMap{visible: make(map[string]map[string]struct{})}
}

// Set replaces the target set for id.
func (v *VisibilityMap) Set(id string, targets []string) {
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}

	v.mu.Lock()
	v.visible[id] = set
	v.mu.Unlock()
}

// Visible returns the sorted target set for id.
func (v *VisibilityMap) Visible(id string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	set, ok := v.visible[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CanSee reports whether source may observe target.
func (v *VisibilityMap) CanSee(source, target string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	set, ok := v.visible[source]
	if !ok {
		return false
	}
	_, ok = set[target]
	return ok
}

// Reset removes all entries.
func (v *VisibilityMap) Reset() {
	v.mu.Lock()
	v.visible = make(map[string]map[string]struct{})
	v.mu.Unlock()
}

// Validate checks the structural invariant: every roster member has an
// entry, and every entry's targets are a subset of the roster.
func (v *VisibilityMap) Validate(roster []string) error {
	rosterSet := make(map[string]struct{}, len(roster))
	for _, id := range roster {
		rosterSet[id] = struct{}{}
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, id := range roster {
		if _, ok := v.visible[id]; !ok {
			return fmt.Errorf("visibility map missing entry for %s: %w", id, ErrRuleValidation)
		}
	}
	for id, set := range v.visible {
		for t := range set {
			if _, ok := rosterSet[t]; !ok {
				return fmt.Errorf("visibility entry %s targets %s outside roster: %w", id, t, ErrRuleValidation)
			}
		}
	}
	return nil
}

// ValidateReciprocal checks that b ∈ visible(a) ⇔ a ∈ visible(b) for every
// pair.
func (v *VisibilityMap) ValidateReciprocal() error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for a, set := range v.visible {
		for b := range set {
			if a == b {
				continue
			}
			if _, ok := v.visible[b][a]; !ok {
				return fmt.Errorf("visibility not reciprocal: %s sees %s but not vice versa: %w", a, b, ErrRuleValidation)
			}
		}
	}
	return nil
}

// Snapshot returns a copy as sorted slices.
func (v *VisibilityMap) Snapshot() map[string][]string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make(map[string][]string, len(v.visible))
	for id, set := range v.visible {
		targets := make([]string, 0, len(set))
		for t := range set {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		out[id] = targets
	}
	return out
}
