package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrent_Next_SelectsWholeRosterByDefault(t *testing.T) {
	c := NewConcurrent(ConcurrentConfig{})
	st := newState("alice", "bob", "carol")

	ids, err := c.Next(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, ids)
}

func TestConcurrent_Next_RespectsMaxConcurrent(t *testing.T) {
	c := NewConcurrent(ConcurrentConfig{MaxConcurrent: 2})
	st := newState("alice", "bob", "carol")

	ids, err := c.Next(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)
}

func TestConcurrent_Next_FiltersBusyAndUnmetDependencies(t *testing.T) {
	c := NewConcurrent(ConcurrentConfig{
		Dependencies: map[string][]string{"carol": {"alice"}},
	})
	st := newState("alice", "bob", "carol")
	st.SetBusy("bob", true)

	// Alice has never acted, so carol's dependency is unmet.
	ids, err := c.Next(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	st.SetBusy("bob", false)
	st.RecordTurn("alice", 0, false)
	ids, err = c.Next(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, ids)
}

func TestConcurrent_ObserveBatch_AdaptsBatchSize(t *testing.T) {
	c := NewConcurrent(ConcurrentConfig{
		Adaptive: true,
		MinBatch: 1,
		MaxBatch: 3,
	})

	require.Equal(t, 1, c.BatchSize())

	// 100% success grows the batch.
	c.ObserveBatch(1, 0)
	assert.Equal(t, 2, c.BatchSize())
	c.ObserveBatch(2, 0)
	assert.Equal(t, 3, c.BatchSize())

	// Clamped at MaxBatch.
	c.ObserveBatch(3, 0)
	assert.Equal(t, 3, c.BatchSize())

	// Below 50% success shrinks, clamped at MinBatch.
	c.ObserveBatch(1, 2)
	assert.Equal(t, 2, c.BatchSize())
	c.ObserveBatch(0, 2)
	c.ObserveBatch(0, 2)
	assert.Equal(t, 1, c.BatchSize())
	c.ObserveBatch(0, 2)
	assert.Equal(t, 1, c.BatchSize())
}

func TestConcurrent_ObserveBatch_MiddleRateHoldsSteady(t *testing.T) {
	c := NewConcurrent(ConcurrentConfig{Adaptive: true, MinBatch: 2, MaxBatch: 5})

	// 60% success is between the thresholds.
	c.ObserveBatch(3, 2)
	assert.Equal(t, 2, c.BatchSize())
}

func TestConcurrent_Next_AdaptiveCapApplies(t *testing.T) {
	c := NewConcurrent(ConcurrentConfig{Adaptive: true, MinBatch: 1, MaxBatch: 3})
	st := newState("alice", "bob", "carol")

	ids, err := c.Next(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	c.ObserveBatch(1, 0)
	ids, err = c.Next(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)
}

func TestConcurrent_ObserveBatch_IgnoredWhenNotAdaptive(t *testing.T) {
	c := NewConcurrent(ConcurrentConfig{})
	c.ObserveBatch(0, 5)
	assert.Equal(t, 1, c.BatchSize())
}
