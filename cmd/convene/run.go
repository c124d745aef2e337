package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convene/internal/actor"
	"github.com/fyrsmithlabs/convene/internal/config"
	"github.com/fyrsmithlabs/convene/internal/env"
	"github.com/fyrsmithlabs/convene/internal/logging"
	"github.com/fyrsmithlabs/convene/internal/memory"
	"github.com/fyrsmithlabs/convene/internal/orchestrator"
	"github.com/fyrsmithlabs/convene/internal/rule"
	"github.com/fyrsmithlabs/convene/internal/telemetry"
)

// runCmd drives a simulation to completion.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation to completion",
	Long: `Run loads the configuration, builds the policy bundle and scripted
actors, and drives the environment until it completes, errors, or the
process receives an interrupt.

Examples:
  # Run a simulation
  convene run -c simulation.yaml

  # Override the log level
  CONVENE_LOGGING_LEVEL=debug convene run -c simulation.yaml`,
	RunE: runRun,
}

// simulation bundles everything runRun needs to drive a loop.
type simulation struct {
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
}

func (s *simulation) close() {
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}

// buildSimulation wires config, logger, rule, actors, environment, and
// orchestrator together.
func buildSimulation(path string) (*simulation, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	builtRule, err := rule.Default().Build(cfg.Rule, logger)
	if err != nil {
		return nil, fmt.Errorf("building rule: %w", err)
	}

	handles := make(map[string]*env.Handle, len(cfg.Actors))
	for _, ac := range cfg.Actors {
		mem, err := buildMemory(ac, logger)
		if err != nil {
			return nil, fmt.Errorf("actor %s: %w", ac.ID, err)
		}
		h := &env.Handle{
			Actor:  actor.NewScripted(ac.ID, mem, ac.Script...),
			Memory: mem,
		}
		if ac.ToolMemory {
			h.ToolMemory = memory.NewBuffer(ac.Memory.Capacity)
		}
		handles[ac.ID] = h
	}

	environ, err := env.New(env.Config{
		Name:            cfg.Name,
		MaxTurns:        cfg.MaxTurns,
		ActorTimeout:    cfg.ActorTimeout,
		VisibilityEvery: cfg.VisibilityEvery,
	}, *builtRule, handles, logger)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(cfg.Orchestrator, environ, logger)
	if err != nil {
		return nil, err
	}
	return &simulation{cfg: cfg, orch: orch, logger: logger}, nil
}

func buildMemory(ac config.ActorConfig, logger *zap.Logger) (actor.Memory, error) {
	switch ac.Memory.Kind {
	case config.MemoryVector:
		collection := ac.Memory.Collection
		if collection == "" {
			collection = "actor-" + ac.ID
		}
		return memory.NewVector(memory.VectorConfig{
			Collection:   collection,
			DefaultLimit: ac.Memory.Limit,
		}, logger.Named("memory"))
	default:
		return memory.NewBuffer(ac.Memory.Capacity), nil
	}
}

// serveMetrics exposes the Prometheus registry for the duration of the
// run. Listener failures are logged, not fatal.
func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener failed", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	sim, err := buildSimulation(configPath)
	if err != nil {
		return err
	}
	defer sim.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, sim.cfg.Telemetry, sim.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			sim.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	if sim.cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(sim.cfg.MetricsAddr, sim.logger)
		defer stopMetrics()
	}

	out := cmd.OutOrStdout()
	sim.orch.OnStep = func(result *env.StepResult) {
		for _, msg := range result.Messages {
			fmt.Fprintf(out, "[%d] %s: %s\n", result.Snapshot.Turn, msg.Sender, msg.Content)
		}
		for _, f := range result.Failures {
			fmt.Fprintf(out, "[%d] %s failed: %v\n", result.Snapshot.Turn, f.ActorID, f.Err)
		}
	}

	result, err := sim.orch.Run(ctx)
	if result != nil {
		fmt.Fprintf(out, "finished after %d steps, status %s, %d messages\n",
			result.Steps, result.Snapshot.Status, result.Snapshot.HistoryLen)
	}
	return err
}
