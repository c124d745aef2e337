package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Breaker counts consecutive failures of a wrapped operation. Once the
// threshold is reached further calls are short-circuited with ErrCircuitOpen.
// With a recovery timeout the circuit turns half-open after the timeout and
// lets a single probe through; the probe's outcome closes or re-opens it.
// Without one, only a success before opening or an explicit Reset closes it.
type Breaker struct {
	name      string
	threshold int
	recovery  time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures. A zero recovery disables half-open probing.
func NewBreaker(name string, threshold int, recovery time.Duration, logger *zap.Logger) (*Breaker, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("breaker %s: threshold must be at least 1, got %d", name, threshold)
	}
	if recovery < 0 {
		return nil, fmt.Errorf("breaker %s: recovery must be non-negative, got %s", name, recovery)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		recovery:  recovery,
		logger:    logger.Named("breaker"),
		now:       time.Now,
	}, nil
}

// Do invokes op unless the circuit is open. op's error trips the failure
// counter; success closes the circuit.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if !b.allow() {
		return fmt.Errorf("breaker %s: %w", b.name, ErrCircuitOpen)
	}

	if err := op(ctx); err != nil {
		b.recordFailure()
		return err
	}

	b.Reset()
	return nil
}

// allow reports whether a call may proceed. An open circuit whose recovery
// timeout has elapsed admits one probe and re-arms the timer, so concurrent
// callers cannot probe together.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	if b.recovery <= 0 || b.now().Sub(b.openedAt) < b.recovery {
		return false
	}
	b.openedAt = b.now()
	b.logger.Info("circuit half-open, probing", zap.String("breaker", b.name))
	return true
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.threshold {
		b.openedAt = b.now()
	}
	if b.failures == b.threshold {
		breakerOpened.WithLabelValues(b.name).Inc()
		b.logger.Warn("circuit opened",
			zap.String("breaker", b.name),
			zap.Int("consecutive_failures", b.failures),
		)
	}
}

// Open reports whether the circuit is currently open.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}
