package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority_Next_HighestPriorityFirst(t *testing.T) {
	p := NewPriority(PriorityConfig{
		AllowRepeats: true,
		Priorities:   map[string]int{"alice": 1, "bob": 5, "carol": 3},
	})
	st := newState("alice", "bob", "carol")

	ids, err := p.Next(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ids)
}

func TestPriority_Next_RosterOrderBreaksTies(t *testing.T) {
	p := NewPriority(PriorityConfig{AllowRepeats: true, BatchSize: 2})
	st := newState("alice", "bob", "carol")

	ids, err := p.Next(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)
}

func TestPriority_Next_AgingPreventsStarvation(t *testing.T) {
	p := NewPriority(PriorityConfig{
		AllowRepeats: true,
		Priorities:   map[string]int{"alice": 10},
		AgingTurns:   3,
		SkipThreshold: 100,
	})
	st := newState("alice", "bob")
	ctx := context.Background()

	// Alice wins until bob ages out.
	for i := 0; i < 3; i++ {
		ids, err := p.Next(ctx, st)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, ids)
	}

	ids, err := p.Next(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ids, "aged-out actor must jump the queue")
}

func TestPriority_Next_SkipThresholdForcesSelection(t *testing.T) {
	p := NewPriority(PriorityConfig{
		AllowRepeats:  true,
		Priorities:    map[string]int{"alice": 10},
		AgingTurns:    100,
		SkipThreshold: 2,
	})
	st := newState("alice", "bob")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ids, err := p.Next(ctx, st)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, ids)
	}

	ids, err := p.Next(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ids)
}

func TestPriority_Next_FallsBackToRosterWhenAllActedLastTurn(t *testing.T) {
	p := NewPriority(PriorityConfig{})
	st := newState("alice", "bob")
	st.SetLastSelected([]string{"alice", "bob"})

	ids, err := p.Next(context.Background(), st)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}
