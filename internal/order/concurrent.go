package order

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// ConcurrentConfig configures a Concurrent order.
type ConcurrentConfig struct {
	// MaxConcurrent caps how many actors act in the same turn; 0 means
	// the whole roster.
	MaxConcurrent int `koanf:"max_concurrent"`

	// Dependencies maps an actor to the ids that must have acted at
	// least once before it becomes eligible.
	Dependencies map[string][]string `koanf:"dependencies"`

	// Adaptive enables outcome-driven batch sizing: the batch grows when
	// recent turns succeed above GrowThreshold and shrinks below
	// ShrinkThreshold, clamped to [MinBatch, MaxBatch].
	Adaptive bool `koanf:"adaptive"`

	// MinBatch is the adaptive lower clamp. Default: 1
	MinBatch int `koanf:"min_batch"`

	// MaxBatch is the adaptive upper clamp; 0 means the roster size.
	MaxBatch int `koanf:"max_batch"`

	// GrowThreshold is the success rate above which the batch grows.
	// Default: 0.8
	GrowThreshold float64 `koanf:"grow_threshold"`

	// ShrinkThreshold is the success rate below which the batch shrinks.
	// Default: 0.5
	ShrinkThreshold float64 `koanf:"shrink_threshold"`
}

// ApplyDefaults sets default values for unset fields.
func (c *ConcurrentConfig) ApplyDefaults() {
	if c.MinBatch == 0 {
		c.MinBatch = 1
	}
	if c.GrowThreshold == 0 {
		c.GrowThreshold = 0.8
	}
	if c.ShrinkThreshold == 0 {
		c.ShrinkThreshold = 0.5
	}
}

// Concurrent selects all, or a capped and dependency-filtered subset of,
// the roster for the same turn.
type Concurrent struct {
	cfg ConcurrentConfig

	mu    sync.Mutex
	batch int
}

// NewConcurrent creates a concurrent order. Adaptive sizing starts at
// MinBatch and grows with success.
func NewConcurrent(cfg ConcurrentConfig) *Concurrent {
	cfg.ApplyDefaults()
	return &Concurrent{cfg: cfg, batch: cfg.MinBatch}
}

// Next implements env.Order.
func (c *Concurrent) Next(ctx context.Context, st *env.State) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	roster := st.Roster()
	eligible := make([]string, 0, len(roster))
	for _, id := range roster {
		if st.Actor(id).Busy {
			skipsTotal.WithLabelValues("concurrent", "busy").Inc()
			continue
		}
		if !c.dependenciesMet(id, st) {
			skipsTotal.WithLabelValues("concurrent", "dependency").Inc()
			continue
		}
		eligible = append(eligible, id)
	}

	limit := c.currentCap(len(roster))
	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	batchSize.WithLabelValues("concurrent").Observe(float64(len(eligible)))
	return eligible, nil
}

// ObserveBatch implements env.BatchObserver.
func (c *Concurrent) ObserveBatch(succeeded, failed int) {
	if !c.cfg.Adaptive {
		return
	}
	total := succeeded + failed
	if total == 0 {
		return
	}
	rate := float64(succeeded) / float64(total)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case rate >= c.cfg.GrowThreshold:
		c.batch++
	case rate < c.cfg.ShrinkThreshold:
		c.batch--
	}
	if c.batch < c.cfg.MinBatch {
		c.batch = c.cfg.MinBatch
	}
	if c.cfg.MaxBatch > 0 && c.batch > c.cfg.MaxBatch {
		c.batch = c.cfg.MaxBatch
	}
}

// BatchSize returns the current adaptive batch size.
func (c *Concurrent) BatchSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batch
}

func (c *Concurrent) currentCap(rosterSize int) int {
	if c.cfg.Adaptive {
		c.mu.Lock()
		limit := c.batch
		c.mu.Unlock()
		if c.cfg.MaxBatch == 0 && limit > rosterSize {
			limit = rosterSize
		}
		return limit
	}
	return c.cfg.MaxConcurrent
}

func (c *Concurrent) dependenciesMet(id string, st *env.State) bool {
	for _, dep := range c.cfg.Dependencies[id] {
		if st.Actor(dep).LastActed < 0 {
			return false
		}
	}
	return true
}
