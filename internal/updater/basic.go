package updater

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convene/internal/env"
	"github.com/fyrsmithlabs/convene/internal/message"
	"github.com/fyrsmithlabs/convene/internal/resource"
)

// SilenceContent is the payload of the synthetic message committed when
// a turn yields no accepted output.
const SilenceContent = "[Silence]"

// Config holds Basic updater settings.
type Config struct {
	// Silence commits a synthetic system message on empty turns so
	// per-actor memories stay turn-aligned.
	Silence bool `koanf:"silence"`
	// ToolBroadcastFallback delivers a tool response to every actor
	// exposing a tool memory when the originating actor has none.
	ToolBroadcastFallback bool `koanf:"tool_broadcast_fallback"`
	// Retry bounds retries of failed tool-memory writes.
	Retry resource.RetryConfig `koanf:"retry"`
}

// ApplyDefaults fills zero values with sane defaults.
func (c *Config) ApplyDefaults() {
	c.Retry.ApplyDefaults()
}

// Basic delivers accepted messages to history and recipient memories.
type Basic struct {
	cfg     Config
	retrier *resource.Retrier
	logger  *zap.Logger
}

// NewBasic builds an updater. A nil logger falls back to a no-op logger.
func NewBasic(cfg Config, logger *zap.Logger) *Basic {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Basic{
		cfg:     cfg,
		retrier: resource.NewRetrier(cfg.Retry, nil, logger.Named("tool-retry")),
		logger:  logger,
	}
}

// Commit appends each accepted message to history and delivers it to
// the resolved recipient memories. A named receiver missing from the
// roster is an error that identifies the receiver.
func (u *Basic) Commit(ctx context.Context, accepted []*message.Message, e *env.Environment) error {
	if len(accepted) == 0 {
		if !u.cfg.Silence {
			return nil
		}
		return u.commitSilence(ctx, e)
	}

	for _, msg := range accepted {
		receivers, err := u.resolve(msg, e)
		if err != nil {
			return err
		}
		e.State().AppendHistory(msg)
		for _, id := range receivers {
			h, ok := e.Handle(id)
			if !ok || h.Memory == nil {
				continue
			}
			if err := h.Memory.AddMessages(ctx, []*message.Message{msg.Clone()}); err != nil {
				deliveryFailures.Inc()
				return fmt.Errorf("delivering to %s: %w", id, err)
			}
			deliveries.WithLabelValues("memory").Inc()
		}
		if msg.ToolResponse != nil {
			if err := u.routeToolResponse(ctx, msg, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve expands the receiver set to concrete roster ids.
func (u *Basic) resolve(msg *message.Message, e *env.Environment) ([]string, error) {
	if msg.IsBroadcast() {
		return e.Roster(), nil
	}
	receivers := make([]string, 0, len(msg.Receivers))
	for _, id := range msg.Receivers {
		if !e.State().InRoster(id) {
			return nil, fmt.Errorf("%s: %w", id, env.ErrUnknownReceiver)
		}
		receivers = append(receivers, id)
	}
	return receivers, nil
}

// routeToolResponse writes the tool payload to the originating actor's
// tool memory, retrying transient write failures. When the originator
// has no tool memory and broadcast fallback is enabled, every actor
// with a tool memory receives a copy instead.
func (u *Basic) routeToolResponse(ctx context.Context, msg *message.Message, e *env.Environment) error {
	targets := u.toolTargets(msg.Sender, e)
	if len(targets) == 0 {
		u.logger.Debug("tool response has no destination",
			zap.String("sender", msg.Sender),
			zap.String("tool", msg.ToolResponse.Tool),
		)
		return nil
	}
	for _, id := range targets {
		h, _ := e.Handle(id)
		err := u.retrier.Do(ctx, func(ctx context.Context) error {
			return h.ToolMemory.AddMessages(ctx, []*message.Message{msg.Clone()})
		})
		if err != nil {
			deliveryFailures.Inc()
			return fmt.Errorf("routing tool response to %s: %w", id, err)
		}
		deliveries.WithLabelValues("tool").Inc()
	}
	return nil
}

func (u *Basic) toolTargets(sender string, e *env.Environment) []string {
	if h, ok := e.Handle(sender); ok && h.ToolMemory != nil {
		return []string{sender}
	}
	if !u.cfg.ToolBroadcastFallback {
		return nil
	}
	var targets []string
	for _, id := range e.Roster() {
		if h, ok := e.Handle(id); ok && h.ToolMemory != nil {
			targets = append(targets, id)
		}
	}
	return targets
}

func (u *Basic) commitSilence(ctx context.Context, e *env.Environment) error {
	msg := message.NewSystem(SilenceContent)
	e.State().AppendHistory(msg)
	for _, id := range e.Roster() {
		h, ok := e.Handle(id)
		if !ok || h.Memory == nil {
			continue
		}
		if err := h.Memory.AddMessages(ctx, []*message.Message{msg.Clone()}); err != nil {
			deliveryFailures.Inc()
			return fmt.Errorf("delivering silence to %s: %w", id, err)
		}
		deliveries.WithLabelValues("memory").Inc()
	}
	silenceMessages.Inc()
	return nil
}
