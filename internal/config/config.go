// Package config provides configuration loading for convene.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/convene/internal/logging"
	"github.com/fyrsmithlabs/convene/internal/orchestrator"
	"github.com/fyrsmithlabs/convene/internal/rule"
	"github.com/fyrsmithlabs/convene/internal/telemetry"
)

// MemoryKind selects an actor memory backend.
type MemoryKind string

const (
	// MemoryBuffer is the bounded in-process ring buffer.
	MemoryBuffer MemoryKind = "buffer"
	// MemoryVector is the embedded vector store with similarity search.
	MemoryVector MemoryKind = "vector"
)

// MemoryConfig selects and sizes an actor's memory backend.
type MemoryConfig struct {
	Kind MemoryKind `koanf:"kind"`
	// Capacity bounds the buffer backend. Zero uses the backend default.
	Capacity int `koanf:"capacity"`
	// Collection names the vector backend collection. Zero value uses
	// a per-actor default.
	Collection string `koanf:"collection"`
	// Limit is the default search result bound for the vector backend.
	Limit int `koanf:"limit"`
}

// ActorConfig declares one scripted participant.
type ActorConfig struct {
	ID string `koanf:"id"`
	// Script lines are replayed in order, wrapping around at the end.
	Script []string     `koanf:"script"`
	Memory MemoryConfig `koanf:"memory"`
	// ToolMemory gives the actor a dedicated buffer for tool responses.
	ToolMemory bool `koanf:"tool_memory"`
}

// Config is the root configuration document.
type Config struct {
	// Name labels the simulation in logs and traces.
	Name string `koanf:"name"`
	// MaxTurns bounds the run. Zero means unbounded.
	MaxTurns int `koanf:"max_turns"`
	// ActorTimeout bounds each actor's turn.
	ActorTimeout time.Duration `koanf:"actor_timeout"`
	// VisibilityEvery refreshes the visibility map every N turns.
	VisibilityEvery int `koanf:"visibility_every"`
	// MetricsAddr serves Prometheus metrics on this address during runs.
	// Empty disables the listener.
	MetricsAddr string `koanf:"metrics_addr"`

	Rule         rule.Spec           `koanf:"rule"`
	Actors       []ActorConfig       `koanf:"actors"`
	Orchestrator orchestrator.Config `koanf:"orchestrator"`
	Logging      logging.Config      `koanf:"logging"`
	Telemetry    telemetry.Config    `koanf:"telemetry"`
}

// ApplyDefaults fills zero values with sane defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "convene"
	}
	if c.Rule.Order.Kind == "" {
		c.Rule.Order.Kind = rule.OrderSequential
	}
	if c.Rule.Visibility.Kind == "" {
		c.Rule.Visibility.Kind = rule.VisibilityAll
	}
	if c.Rule.Selector.Kind == "" {
		c.Rule.Selector.Kind = rule.SelectorBasic
	}
	if c.Rule.Updater.Kind == "" {
		c.Rule.Updater.Kind = rule.UpdaterBasic
	}
	if c.Rule.Describer.Kind == "" {
		c.Rule.Describer.Kind = rule.DescriberBasic
	}
	for i := range c.Actors {
		if c.Actors[i].Memory.Kind == "" {
			c.Actors[i].Memory.Kind = MemoryBuffer
		}
	}
	c.Orchestrator.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if len(c.Actors) == 0 {
		return fmt.Errorf("at least one actor is required")
	}
	seen := make(map[string]struct{}, len(c.Actors))
	for _, a := range c.Actors {
		if a.ID == "" {
			return fmt.Errorf("actor id is required")
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate actor id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
		switch a.Memory.Kind {
		case MemoryBuffer, MemoryVector:
		default:
			return fmt.Errorf("actor %s: unknown memory kind %q", a.ID, a.Memory.Kind)
		}
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("max_turns must be non-negative")
	}
	if err := c.Orchestrator.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
