package order

import (
	"context"
	"sort"
	"sync"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// PriorityConfig configures a Priority order.
type PriorityConfig struct {
	// BatchSize is how many actors act per turn. Default: 1
	BatchSize int `koanf:"batch_size"`

	// Priorities maps actor id to priority level; higher levels act
	// earlier. Unlisted actors have priority 0.
	Priorities map[string]int `koanf:"priorities"`

	// AgingTurns forces an actor to the front once it has waited this
	// many turns without acting, regardless of priority. Default: 5
	AgingTurns int `koanf:"aging_turns"`

	// SkipThreshold forces an actor to the front once it has been passed
	// over this many consecutive times. Default: 3
	SkipThreshold int `koanf:"skip_threshold"`

	// AllowRepeats lets an actor act in consecutive turns.
	AllowRepeats bool `koanf:"allow_repeats"`
}

// ApplyDefaults sets default values for unset fields.
func (c *PriorityConfig) ApplyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 1
	}
	if c.AgingTurns == 0 {
		c.AgingTurns = 5
	}
	if c.SkipThreshold == 0 {
		c.SkipThreshold = 3
	}
}

// Priority extends sequential selection with per-actor priority levels and
// aging counters. Aged or repeatedly skipped actors jump the priority queue,
// so low-priority actors cannot starve.
type Priority struct {
	cfg PriorityConfig

	mu    sync.Mutex
	age   map[string]int
	skips map[string]int
}

// NewPriority creates a priority order.
func NewPriority(cfg PriorityConfig) *Priority {
	cfg.ApplyDefaults()
	return &Priority{
		cfg:   cfg,
		age:   make(map[string]int),
		skips: make(map[string]int),
	}
}

// Next implements env.Order.
func (p *Priority) Next(ctx context.Context, st *env.State) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	roster := st.Roster()
	if len(roster) == 0 {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var eligible []string
	for _, id := range roster {
		if st.Actor(id).Busy {
			skipsTotal.WithLabelValues("priority", "busy").Inc()
			continue
		}
		if !p.cfg.AllowRepeats && st.SelectedLastTurn(id) {
			skipsTotal.WithLabelValues("priority", "repeat").Inc()
			continue
		}
		eligible = append(eligible, id)
	}
	if len(eligible) == 0 {
		// Everyone acted last turn; fall back to the full roster so the
		// simulation keeps moving.
		eligible = roster
	}

	// Forced actors (aged out or skipped too often) come first, then by
	// priority, then roster order for stability.
	rosterIdx := make(map[string]int, len(roster))
	for i, id := range roster {
		rosterIdx[id] = i
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		fa, fb := p.forced(a), p.forced(b)
		if fa != fb {
			return fa
		}
		pa, pb := p.cfg.Priorities[a], p.cfg.Priorities[b]
		if pa != pb {
			return pa > pb
		}
		return rosterIdx[a] < rosterIdx[b]
	})

	want := p.cfg.BatchSize
	if want > len(eligible) {
		want = len(eligible)
	}
	selected := eligible[:want]

	selectedSet := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		selectedSet[id] = struct{}{}
	}
	for _, id := range roster {
		if _, ok := selectedSet[id]; ok {
			p.age[id] = 0
			p.skips[id] = 0
			continue
		}
		p.age[id]++
		p.skips[id]++
	}
	batchSize.WithLabelValues("priority").Observe(float64(len(selected)))
	return append([]string(nil), selected...), nil
}

func (p *Priority) forced(id string) bool {
	return p.age[id] >= p.cfg.AgingTurns || p.skips[id] >= p.cfg.SkipThreshold
}
