package order

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// SequentialConfig configures a Sequential order.
type SequentialConfig struct {
	// BatchSize is how many actors act per turn. Default: 1
	BatchSize int `koanf:"batch_size"`

	// SkipUnavailable skips actors marked busy or that acted in the
	// immediately preceding turn.
	SkipUnavailable bool `koanf:"skip_unavailable"`

	// AllowRepeats lets an actor act in consecutive turns even when
	// SkipUnavailable is set.
	AllowRepeats bool `koanf:"allow_repeats"`

	// AllowReverse makes the cursor ping-pong at the roster boundaries
	// instead of wrapping.
	AllowReverse bool `koanf:"allow_reverse"`

	// MaxSkipRetries bounds how many roster sweeps may be spent skipping
	// before the batch is filled from actors outside the previous turn's
	// set. Default: 3
	MaxSkipRetries int `koanf:"max_skip_retries"`
}

// ApplyDefaults sets default values for unset fields.
func (c *SequentialConfig) ApplyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 1
	}
	if c.MaxSkipRetries == 0 {
		c.MaxSkipRetries = 3
	}
}

// Sequential walks the roster with a cursor, optionally reversing direction
// at the boundaries and skipping unavailable actors.
type Sequential struct {
	cfg SequentialConfig

	mu  sync.Mutex
	pos int
	dir int
}

// NewSequential creates a sequential order.
func NewSequential(cfg SequentialConfig) *Sequential {
	cfg.ApplyDefaults()
	return &Sequential{cfg: cfg, dir: 1}
}

// Next implements env.Order.
func (s *Sequential) Next(ctx context.Context, st *env.State) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	roster := st.Roster()
	if len(roster) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	want := s.cfg.BatchSize
	if want > len(roster) {
		want = len(roster)
	}

	selected := make([]string, 0, want)
	inBatch := make(map[string]struct{}, want)
	maxAttempts := len(roster) * s.cfg.MaxSkipRetries
	if maxAttempts < want {
		maxAttempts = want
	}

	for attempts := 0; len(selected) < want && attempts < maxAttempts; attempts++ {
		id := roster[s.pos]
		s.advance(len(roster))

		if _, ok := inBatch[id]; ok {
			continue
		}
		if s.cfg.SkipUnavailable {
			if st.Actor(id).Busy {
				skipsTotal.WithLabelValues("sequential", "busy").Inc()
				continue
			}
			if !s.cfg.AllowRepeats && st.SelectedLastTurn(id) {
				skipsTotal.WithLabelValues("sequential", "repeat").Inc()
				continue
			}
		}
		selected = append(selected, id)
		inBatch[id] = struct{}{}
	}

	// Skip retries exhausted: fill from actors not in the previous
	// turn's set.
	for _, id := range roster {
		if len(selected) >= want {
			break
		}
		if _, ok := inBatch[id]; ok {
			continue
		}
		if st.SelectedLastTurn(id) {
			continue
		}
		selected = append(selected, id)
		inBatch[id] = struct{}{}
	}
	batchSize.WithLabelValues("sequential").Observe(float64(len(selected)))
	return selected, nil
}

// advance moves the cursor one position, ping-ponging at the boundaries
// when reversal is enabled.
func (s *Sequential) advance(n int) {
	if n == 1 {
		s.pos = 0
		return
	}

	s.pos += s.dir
	switch {
	case s.pos >= n:
		if s.cfg.AllowReverse {
			s.dir = -1
			s.pos = n - 2
		} else {
			s.pos = 0
		}
	case s.pos < 0:
		if s.cfg.AllowReverse {
			s.dir = 1
			s.pos = 1
		} else {
			s.pos = n - 1
		}
	}
}
