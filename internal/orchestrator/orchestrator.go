package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convene/internal/env"
	"github.com/fyrsmithlabs/convene/internal/resource"
)

var tracer = otel.Tracer("convene.orchestrator")

// Config holds run-loop settings.
type Config struct {
	// StepsPerSecond is the token-bucket refill rate guarding steps.
	// Zero disables rate limiting.
	StepsPerSecond float64 `koanf:"steps_per_second"`
	// Burst is the token-bucket capacity.
	Burst int `koanf:"burst"`
	// MaxSteps caps the total number of steps per quota interval.
	// Zero disables the quota.
	MaxSteps int64 `koanf:"max_steps"`
	// QuotaInterval resets step usage periodically. Zero never resets.
	QuotaInterval time.Duration `koanf:"quota_interval"`
	// Retry bounds retries of rate-limited steps.
	Retry resource.RetryConfig `koanf:"retry"`
	// BreakerThreshold opens the circuit after this many consecutive
	// step failures. Zero disables the breaker.
	BreakerThreshold int `koanf:"breaker_threshold"`
	// BreakerRecovery half-opens the circuit after this long, admitting
	// a probe step. Zero keeps an open circuit open.
	BreakerRecovery time.Duration `koanf:"breaker_recovery"`
}

// ApplyDefaults fills zero values with sane defaults.
func (c *Config) ApplyDefaults() {
	if c.Burst == 0 {
		c.Burst = 1
	}
	c.Retry.ApplyDefaults()
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.StepsPerSecond < 0 {
		return fmt.Errorf("%w: steps_per_second must be non-negative", env.ErrConfiguration)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must be non-negative", env.ErrConfiguration)
	}
	if c.BreakerThreshold < 0 {
		return fmt.Errorf("%w: breaker_threshold must be non-negative", env.ErrConfiguration)
	}
	if c.BreakerRecovery < 0 {
		return fmt.Errorf("%w: breaker_recovery must be non-negative", env.ErrConfiguration)
	}
	return nil
}

// Result summarizes a completed run.
type Result struct {
	Steps    int
	Snapshot env.Snapshot
	Err      error
}

// Orchestrator owns an Environment and the governance primitives that
// bound its execution.
type Orchestrator struct {
	cfg     Config
	environ *env.Environment
	bucket  *resource.TokenBucket
	quota   *resource.Quota
	retrier *resource.Retrier
	breaker *resource.Breaker
	logger  *zap.Logger

	// OnStep, when set, observes every completed step result.
	OnStep func(*env.StepResult)
}

// New builds an orchestrator around an environment.
func New(cfg Config, environ *env.Environment, logger *zap.Logger) (*Orchestrator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if environ == nil {
		return nil, fmt.Errorf("%w: environment is required", env.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{cfg: cfg, environ: environ, logger: logger}

	if cfg.StepsPerSecond > 0 {
		bucket, err := resource.NewTokenBucket("steps", cfg.StepsPerSecond, cfg.Burst)
		if err != nil {
			return nil, err
		}
		o.bucket = bucket
	}
	if cfg.MaxSteps > 0 {
		quota, err := resource.NewQuota("steps", cfg.MaxSteps, "steps", cfg.QuotaInterval)
		if err != nil {
			return nil, err
		}
		o.quota = quota
	}
	if cfg.BreakerThreshold > 0 {
		breaker, err := resource.NewBreaker("steps", cfg.BreakerThreshold, cfg.BreakerRecovery, logger.Named("breaker"))
		if err != nil {
			return nil, err
		}
		o.breaker = breaker
	}
	// Rate-limit denials are the transient failure class worth retrying.
	// Step errors mark the environment as errored and are terminal.
	o.retrier = resource.NewRetrier(cfg.Retry, func(err error) bool {
		return errors.Is(err, resource.ErrRateLimited)
	}, logger.Named("retry"))

	return o, nil
}

// Environment returns the wrapped environment.
func (o *Orchestrator) Environment() *env.Environment { return o.environ }

// Run drives the environment until it reports done, the context is
// canceled, or governance aborts the loop. Committed history survives
// every abort path; the returned Result carries the final snapshot.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Run")
	defer span.End()

	started := time.Now()
	steps := 0
	finish := func(err error) (*Result, error) {
		runDuration.Observe(time.Since(started).Seconds())
		result := "success"
		if err != nil {
			result = "error"
		}
		runsTotal.WithLabelValues(result).Inc()
		span.SetAttributes(attribute.Int("steps", steps))
		return &Result{
			Steps:    steps,
			Snapshot: o.environ.State().Snapshot(),
			Err:      err,
		}, err
	}

	for {
		// Stop accepting new steps once cancellation is observed. An
		// in-flight step is never interrupted here.
		select {
		case <-ctx.Done():
			o.logger.Info("run canceled", zap.Int("steps", steps))
			return finish(ctx.Err())
		default:
		}
		if o.environ.IsDone() {
			o.logger.Info("run completed",
				zap.Int("steps", steps),
				zap.Duration("elapsed", time.Since(started)),
			)
			return finish(nil)
		}

		if o.quota != nil {
			if err := o.quota.Allocate(1); err != nil {
				o.logger.Warn("step quota exhausted", zap.Int("steps", steps), zap.Error(err))
				return finish(err)
			}
		}

		if err := o.step(ctx); err != nil {
			o.logger.Error("run aborted", zap.Int("steps", steps), zap.Error(err))
			return finish(err)
		}
		steps++
	}
}

// step executes one governed environment step.
func (o *Orchestrator) step(ctx context.Context) error {
	op := func(ctx context.Context) error {
		if o.bucket != nil && !o.bucket.Acquire(1) {
			return fmt.Errorf("step rate limited: %w", resource.ErrRateLimited)
		}
		result, err := o.environ.Step(ctx)
		if err != nil {
			return err
		}
		if o.OnStep != nil {
			o.OnStep(result)
		}
		return nil
	}

	retried := func(ctx context.Context) error {
		return o.retrier.Do(ctx, op)
	}
	if o.breaker != nil {
		return o.breaker.Do(ctx, retried)
	}
	return retried(ctx)
}
