package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/convene/internal/rule"
)

const sampleYAML = `name: standup
max_turns: 6
actor_timeout: 5s

rule:
  order:
    kind: random
    params:
      seed: 42
      batch_size: 2
  visibility:
    kind: self_only
  selector:
    kind: basic
    params:
      drop_empty: true

actors:
  - id: alice
    script: ["hello", "goodbye"]
    memory:
      kind: vector
      collection: alice-notes
  - id: bob
    script: ["hi"]
    tool_memory: true

orchestrator:
  max_steps: 12

logging:
  level: debug
  format: console
`

func TestLoadBytes_ValidYAML(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "standup", cfg.Name)
	assert.Equal(t, 6, cfg.MaxTurns)
	assert.Equal(t, 5*time.Second, cfg.ActorTimeout)

	assert.Equal(t, rule.OrderRandom, cfg.Rule.Order.Kind)
	assert.Equal(t, 42, cfg.Rule.Order.Params["seed"])
	assert.Equal(t, rule.VisibilitySelfOnly, cfg.Rule.Visibility.Kind)
	assert.Equal(t, rule.SelectorBasic, cfg.Rule.Selector.Kind)

	require.Len(t, cfg.Actors, 2)
	assert.Equal(t, "alice", cfg.Actors[0].ID)
	assert.Equal(t, []string{"hello", "goodbye"}, cfg.Actors[0].Script)
	assert.Equal(t, MemoryVector, cfg.Actors[0].Memory.Kind)
	assert.Equal(t, "alice-notes", cfg.Actors[0].Memory.Collection)
	assert.True(t, cfg.Actors[1].ToolMemory)

	assert.Equal(t, int64(12), cfg.Orchestrator.MaxSteps)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadBytes_DefaultsApplied(t *testing.T) {
	cfg, err := LoadBytes([]byte("actors:\n  - id: solo\n"))
	require.NoError(t, err)

	assert.Equal(t, "convene", cfg.Name)
	assert.Equal(t, rule.OrderSequential, cfg.Rule.Order.Kind)
	assert.Equal(t, rule.VisibilityAll, cfg.Rule.Visibility.Kind)
	assert.Equal(t, rule.SelectorBasic, cfg.Rule.Selector.Kind)
	assert.Equal(t, rule.UpdaterBasic, cfg.Rule.Updater.Kind)
	assert.Equal(t, rule.DescriberBasic, cfg.Rule.Describer.Kind)
	assert.Equal(t, MemoryBuffer, cfg.Actors[0].Memory.Kind)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadBytes_EnvOverrides(t *testing.T) {
	t.Setenv("CONVENE_NAME", "from-env")
	t.Setenv("CONVENE_MAX_TURNS", "9")
	t.Setenv("CONVENE_LOGGING_LEVEL", "warn")

	cfg, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 9, cfg.MaxTurns)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// Untouched file values survive.
	assert.Equal(t, 5*time.Second, cfg.ActorTimeout)
}

func TestLoadBytes_InvalidYAML(t *testing.T) {
	_, err := LoadBytes([]byte("actors: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadBytes_NoActors(t *testing.T) {
	_, err := LoadBytes([]byte("name: empty\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one actor")
}

func TestLoadBytes_DuplicateActorIDs(t *testing.T) {
	content := "actors:\n  - id: twin\n  - id: twin\n"
	_, err := LoadBytes([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate actor id "twin"`)
}

func TestLoadBytes_UnknownMemoryKind(t *testing.T) {
	content := "actors:\n  - id: solo\n    memory:\n      kind: punchcard\n"
	_, err := LoadBytes([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown memory kind "punchcard"`)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "standup", cfg.Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open config file")
}

func TestLoad_EmptyPathUsesDefaultsAndEnv(t *testing.T) {
	_, err := Load("")
	// Defaults alone declare no actors.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one actor")
}
