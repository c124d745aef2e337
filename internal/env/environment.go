package env

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convene/internal/actor"
	"github.com/fyrsmithlabs/convene/internal/message"
)

var tracer = otel.Tracer("convene.env")

// Config configures an Environment.
type Config struct {
	// Name identifies the environment in logs.
	Name string `koanf:"name"`

	// MaxTurns bounds the simulation; 0 means unbounded.
	MaxTurns int `koanf:"max_turns"`

	// ActorTimeout bounds each actor's turn. Default: 30s
	ActorTimeout time.Duration `koanf:"actor_timeout"`

	// VisibilityEvery refreshes the visibility map when the turn counter
	// is a multiple of it. Default: 1 (every turn)
	VisibilityEvery int `koanf:"visibility_every"`

	// VisibilityMaxAge forces a refresh once the cached map is older than
	// this, regardless of cadence. 0 disables the age check.
	VisibilityMaxAge time.Duration `koanf:"visibility_max_age"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.ActorTimeout == 0 {
		c.ActorTimeout = 30 * time.Second
	}
	if c.VisibilityEvery == 0 {
		c.VisibilityEvery = 1
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MaxTurns < 0 {
		return fmt.Errorf("max_turns must not be negative: %w", ErrConfiguration)
	}
	if c.ActorTimeout < 0 {
		return fmt.Errorf("actor_timeout must not be negative: %w", ErrConfiguration)
	}
	if c.VisibilityEvery < 0 {
		return fmt.Errorf("visibility_every must not be negative: %w", ErrConfiguration)
	}
	return nil
}

// Handle bundles an actor with its private memories. ToolMemory is optional;
// actors without one do not receive routed tool responses.
type Handle struct {
	Actor      actor.Actor
	Memory     actor.Memory
	ToolMemory actor.Memory
}

// StepResult is the bundle returned by every completed step.
type StepResult struct {
	// Messages are the accepted messages, in commit order.
	Messages []*message.Message `json:"messages"`

	// Failures are the tagged per-actor failures of this turn.
	Failures []Outcome `json:"-"`

	// Snapshot is the state after the step.
	Snapshot Snapshot `json:"snapshot"`

	// Done reports whether the simulation reached a terminal condition.
	Done bool `json:"done"`

	// Metrics is a copy of the state metrics map.
	Metrics map[string]float64 `json:"metrics"`
}

// Environment owns the simulation state and drives it by composing the
// active rule's sub-policies.
type Environment struct {
	cfg     Config
	rule    Rule
	state   *State
	vis     *VisibilityMap
	handles map[string]*Handle
	logger  *zap.Logger

	lastVisTime time.Time
	visFresh    bool
}

// New creates an environment over the given handles. The roster is the
// sorted set of handle ids.
func New(cfg Config, r Rule, handles map[string]*Handle, logger *zap.Logger) (*Environment, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("environment needs at least one actor: %w", ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	roster := make([]string, 0, len(handles))
	for id, h := range handles {
		if h == nil || h.Actor == nil {
			return nil, fmt.Errorf("handle %s has no actor: %w", id, ErrConfiguration)
		}
		roster = append(roster, id)
	}
	sort.Strings(roster)

	return &Environment{
		cfg:     cfg,
		rule:    r,
		state:   NewState(roster, cfg.MaxTurns),
		vis:     NewVisibilityMap(),
		handles: handles,
		logger:  logger.Named("env").With(zap.String("environment", cfg.Name)),
	}, nil
}

// State returns the simulation state.
func (e *Environment) State() *State { return e.state }

// Visibility returns the current visibility map.
func (e *Environment) Visibility() *VisibilityMap { return e.vis }

// Handle returns the handle for an actor id.
func (e *Environment) Handle(id string) (*Handle, bool) {
	h, ok := e.handles[id]
	return h, ok
}

// Roster returns the ordered roster.
func (e *Environment) Roster() []string { return e.state.Roster() }

// IsDone reports whether the simulation reached a terminal condition:
// terminal status, turn bound, or rule-specific completion.
func (e *Environment) IsDone() bool {
	if e.state.Status().Terminal() {
		return true
	}
	if max := e.state.MaxTurns(); max > 0 && e.state.Turn() >= max {
		return true
	}
	if e.rule.Done != nil && e.rule.Done(e.state) {
		return true
	}
	return false
}

// Reset restores a fresh simulation over the same roster: state and
// visibility are cleared and every actor and memory is reset.
func (e *Environment) Reset(ctx context.Context) error {
	e.state.Reset()
	e.vis.Reset()
	e.lastVisTime = time.Time{}
	e.visFresh = false

	for id, h := range e.handles {
		if err := h.Actor.Reset(ctx); err != nil {
			return fmt.Errorf("resetting actor %s: %w", id, err)
		}
		if h.Memory != nil {
			if err := h.Memory.Clear(ctx); err != nil {
				return fmt.Errorf("clearing memory of %s: %w", id, err)
			}
		}
		if h.ToolMemory != nil {
			if err := h.ToolMemory.Clear(ctx); err != nil {
				return fmt.Errorf("clearing tool memory of %s: %w", id, err)
			}
		}
	}
	e.logger.Info("environment reset")
	return nil
}

// Step executes one turn. On stage failure the status moves to error and a
// *StepError naming the turn and stage is returned.
func (e *Environment) Step(ctx context.Context) (*StepResult, error) {
	ctx, span := tracer.Start(ctx, "Environment.Step")
	defer span.End()

	started := time.Now()
	turn := e.state.Turn()
	span.SetAttributes(attribute.Int("turn", turn))

	// (a) validate state against the active rule.
	switch e.state.Status() {
	case StatusInitialized:
		if err := e.state.Transition(StatusProcessing); err != nil {
			return nil, e.fail(turn, "validate", err)
		}
	case StatusProcessing:
	default:
		return nil, e.fail(turn, "validate",
			fmt.Errorf("cannot step in status %s: %w", e.state.Status(), ErrInvalidState))
	}
	if err := e.rule.Validate(); err != nil {
		return nil, e.fail(turn, "validate", err)
	}

	// (b) next actors.
	ids, err := e.rule.Order.Next(ctx, e.state)
	if err != nil {
		return nil, e.fail(turn, "order", err)
	}
	for _, id := range ids {
		if _, ok := e.handles[id]; !ok {
			return nil, e.fail(turn, "order", fmt.Errorf("%s: %w", id, ErrUnknownActor))
		}
	}

	// (c) refresh visibility when stale.
	if e.visibilityStale(turn) {
		if err := e.refreshVisibility(ctx, turn); err != nil {
			return nil, e.fail(turn, "visibility", err)
		}
	}

	// (d) render per-actor context.
	descriptions := make(map[string]string, len(ids))
	for _, id := range ids {
		view := &ActorView{
			ActorID:    id,
			State:      e.state,
			Visibility: e.vis,
			Memory:     e.handles[id].Memory,
		}
		desc, err := e.rule.Describer.Describe(ctx, view)
		if err != nil {
			return nil, e.fail(turn, "describe", fmt.Errorf("describing for %s: %w", id, err))
		}
		descriptions[id] = desc
	}

	// (e) dispatch all selected turns concurrently.
	outcomes := e.dispatch(ctx, ids, descriptions)

	// (f) select.
	accepted, err := e.rule.Selector.Select(ctx, outcomes)
	if err != nil {
		return nil, e.fail(turn, "select", err)
	}

	// (g) commit.
	if err := e.rule.Updater.Commit(ctx, accepted, e); err != nil {
		return nil, e.fail(turn, "commit", err)
	}
	messagesCommitted.Add(float64(len(accepted)))

	// (h) advance counters, update metrics, report to adaptive orders.
	var failures []Outcome
	for _, o := range outcomes {
		e.state.RecordTurn(o.ActorID, turn, o.Failed())
		if o.Failed() {
			failures = append(failures, o)
		}
	}
	if bo, ok := e.rule.Order.(BatchObserver); ok {
		bo.ObserveBatch(len(outcomes)-len(failures), len(failures))
	}
	e.state.SetLastSelected(ids)
	e.state.AdvanceTurn()

	elapsed := time.Since(started)
	e.state.AddMetric("steps_total", 1)
	e.state.AddMetric("actor_failures_total", float64(len(failures)))
	e.state.AddMetric("messages_total", float64(len(accepted)))
	e.state.SetMetric("last_step_seconds", elapsed.Seconds())
	stepDuration.Observe(elapsed.Seconds())
	stepsTotal.WithLabelValues("success").Inc()
	actorFailures.Add(float64(len(failures)))

	if e.reachedCompletion() {
		if err := e.state.Transition(StatusCompleted); err != nil {
			return nil, e.fail(turn, "advance", err)
		}
	}

	result := &StepResult{
		Messages: accepted,
		Failures: failures,
		Snapshot: e.state.Snapshot(),
		Done:     e.IsDone(),
		Metrics:  e.state.Metrics(),
	}

	e.logger.Debug("step completed",
		zap.Int("turn", turn),
		zap.Strings("actors", ids),
		zap.Int("accepted", len(accepted)),
		zap.Int("failures", len(failures)),
		zap.Duration("elapsed", elapsed),
		zap.Bool("done", result.Done),
	)
	return result, nil
}

// dispatch runs the selected actors' turns concurrently, each bounded by
// the per-actor timeout. Failures are tagged per actor and never abort
// sibling turns.
func (e *Environment) dispatch(ctx context.Context, ids []string, descriptions map[string]string) []Outcome {
	outcomes := make([]Outcome, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		e.state.SetBusy(id, true)
		wg.Add(1)
		go func(i int, id string, h *Handle) {
			defer wg.Done()
			outcomes[i] = e.runTurn(ctx, id, h, descriptions[id])
		}(i, id, e.handles[id])
	}
	wg.Wait()

	for _, id := range ids {
		e.state.SetBusy(id, false)
	}
	return outcomes
}

// runTurn executes one actor's turn under its timeout. The timeout bounds
// the wait even if the actor ignores context cancellation.
func (e *Environment) runTurn(ctx context.Context, id string, h *Handle, description string) Outcome {
	started := time.Now()

	tctx, cancel := context.WithTimeout(ctx, e.cfg.ActorTimeout)
	defer cancel()

	type turnReply struct {
		msg *message.Message
		err error
	}
	done := make(chan turnReply, 1)
	go func() {
		msg, err := h.Actor.TakeTurn(tctx, description)
		done <- turnReply{msg, err}
	}()

	var out Outcome
	out.ActorID = id
	select {
	case reply := <-done:
		out.Message, out.Err = reply.msg, reply.err
		if out.Err == nil && out.Message == nil {
			out.Err = fmt.Errorf("actor %s returned no message: %w", id, ErrAction)
		}
	case <-tctx.Done():
		out.Err = fmt.Errorf("actor %s turn exceeded %s: %w", id, e.cfg.ActorTimeout, tctx.Err())
	}
	out.Elapsed = time.Since(started)

	if out.Err != nil {
		e.logger.Warn("actor turn failed",
			zap.String("actor", id),
			zap.Duration("elapsed", out.Elapsed),
			zap.Error(out.Err),
		)
	}
	return out
}

// visibilityStale decides whether the cached map needs a refresh: never
// refreshed yet, turn cadence hit, or cache older than the max age.
func (e *Environment) visibilityStale(turn int) bool {
	if !e.visFresh {
		return true
	}
	if e.cfg.VisibilityEvery > 0 && turn%e.cfg.VisibilityEvery == 0 {
		return true
	}
	if e.cfg.VisibilityMaxAge > 0 && time.Since(e.lastVisTime) > e.cfg.VisibilityMaxAge {
		return true
	}
	return false
}

func (e *Environment) refreshVisibility(ctx context.Context, turn int) error {
	if err := e.rule.Visibility.Refresh(ctx, e.state, e.vis); err != nil {
		return err
	}
	if err := e.vis.Validate(e.state.Roster()); err != nil {
		return err
	}
	e.lastVisTime = time.Now()
	e.visFresh = true

	// Phase-style policies broadcast transition notices to every actor.
	if ns, ok := e.rule.Visibility.(NoticeSource); ok {
		if notices := ns.DrainNotices(); len(notices) > 0 {
			if err := e.rule.Updater.Commit(ctx, notices, e); err != nil {
				return fmt.Errorf("committing visibility notices: %w", err)
			}
		}
	}
	return nil
}

func (e *Environment) reachedCompletion() bool {
	if max := e.state.MaxTurns(); max > 0 && e.state.Turn() >= max {
		return true
	}
	return e.rule.Done != nil && e.rule.Done(e.state)
}

// fail marks the environment as errored and wraps err with step context.
func (e *Environment) fail(turn int, stage string, err error) error {
	// Best effort: the transition itself may be invalid if the failure
	// happened before reaching processing.
	_ = e.state.Transition(StatusError)
	stepsTotal.WithLabelValues("error").Inc()

	e.logger.Error("step failed",
		zap.Int("turn", turn),
		zap.String("stage", stage),
		zap.Error(err),
	)
	return &StepError{Turn: turn, Stage: stage, Err: err}
}
