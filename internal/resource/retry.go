package resource

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first
	// failure. Default: 3
	MaxRetries int `koanf:"max_retries"`

	// InitialBackoff is the initial backoff duration. Default: 100ms
	InitialBackoff time.Duration `koanf:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration. Default: 10s
	MaxBackoff time.Duration `koanf:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff.
	// Default: 2
	BackoffMultiplier float64 `koanf:"backoff_multiplier"`
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
}

// Retrier re-runs an operation with exponential backoff while its failures
// match the configured class. A non-matching failure is returned as-is.
type Retrier struct {
	cfg       RetryConfig
	retryable func(error) bool
	logger    *zap.Logger
}

// NewRetrier creates a retrier. retryable decides which failures are
// transient; nil retries every failure.
func NewRetrier(cfg RetryConfig, retryable func(error) bool, logger *zap.Logger) *Retrier {
	cfg.ApplyDefaults()
	if retryable == nil {
		retryable = func(error) bool { return true }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{cfg: cfg, retryable: retryable, logger: logger.Named("retrier")}
}

// Do runs op, retrying matched failures. The last failure is returned once
// attempts are exhausted.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	backoff := r.cfg.InitialBackoff

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("operation recovered after retries",
					zap.Int("attempts", attempt+1),
				)
			}
			return nil
		}
		lastErr = err

		if !r.retryable(err) {
			return err
		}
		if attempt == r.cfg.MaxRetries {
			break
		}

		retryAttempts.Inc()
		r.logger.Debug("retrying after transient failure",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry interrupted: %w", ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * r.cfg.BackoffMultiplier)
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}

	return fmt.Errorf("exhausted %d retries: %w", r.cfg.MaxRetries, lastErr)
}
