package order

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/fyrsmithlabs/convene/internal/env"
)

// RandomConfig configures a Random order.
type RandomConfig struct {
	// Seed drives the generator; identical seeds over identical inputs
	// reproduce the same selection sequence. 0 seeds from the clock.
	Seed int64 `koanf:"seed"`

	// BatchSize is how many actors act per turn. Default: 1
	BatchSize int `koanf:"batch_size"`

	// Weights biases sampling per actor id. Unlisted actors weigh 1.
	Weights map[string]float64 `koanf:"weights"`

	// ExcludeRecent excludes the N most recently selected actors from
	// the pool. Default: 1
	ExcludeRecent int `koanf:"exclude_recent"`

	// AllowRepeats disables the recency exclusion.
	AllowRepeats bool `koanf:"allow_repeats"`
}

// ApplyDefaults sets default values for unset fields.
func (c *RandomConfig) ApplyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 1
	}
	if c.ExcludeRecent == 0 {
		c.ExcludeRecent = 1
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// Random samples actors by weight without replacement, excluding the most
// recent selections unless repeats are allowed.
type Random struct {
	cfg RandomConfig

	mu     sync.Mutex
	rng    *rand.Rand
	recent []string
}

// NewRandom creates a random order.
func NewRandom(cfg RandomConfig) *Random {
	cfg.ApplyDefaults()
	return &Random{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Next implements env.Order.
func (r *Random) Next(ctx context.Context, st *env.State) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	roster := st.Roster()
	if len(roster) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	excluded := make(map[string]struct{})
	if !r.cfg.AllowRepeats {
		for _, id := range r.recent {
			excluded[id] = struct{}{}
		}
	}

	pool := make([]string, 0, len(roster))
	for _, id := range roster {
		if _, ok := excluded[id]; ok {
			continue
		}
		if st.Actor(id).Busy {
			skipsTotal.WithLabelValues("random", "busy").Inc()
			continue
		}
		pool = append(pool, id)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	want := r.cfg.BatchSize
	if want > len(pool) {
		want = len(pool)
	}

	selected := make([]string, 0, want)
	for len(selected) < want {
		id := r.sample(pool)
		selected = append(selected, id)
		for i, p := range pool {
			if p == id {
				pool = append(pool[:i], pool[i+1:]...)
				break
			}
		}
	}

	r.recent = append(r.recent, selected...)
	if n := len(r.recent) - r.cfg.ExcludeRecent; n > 0 {
		r.recent = append([]string(nil), r.recent[n:]...)
	}
	batchSize.WithLabelValues("random").Observe(float64(len(selected)))
	return selected, nil
}

// sample draws one id from the pool by cumulative weight.
func (r *Random) sample(pool []string) string {
	var total float64
	for _, id := range pool {
		total += r.weight(id)
	}

	target := r.rng.Float64() * total
	var cum float64
	for _, id := range pool {
		cum += r.weight(id)
		if target < cum {
			return id
		}
	}
	return pool[len(pool)-1]
}

func (r *Random) weight(id string) float64 {
	if w, ok := r.cfg.Weights[id]; ok && w > 0 {
		return w
	}
	return 1
}
