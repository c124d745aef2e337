package visibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/convene/internal/env"
)

func TestNewGroup_RejectsOverlappingMembership(t *testing.T) {
	_, err := NewGroup(GroupConfig{
		Groups: map[string][]string{
			"red":  {"alice"},
			"blue": {"alice"},
		},
	})
	assert.ErrorIs(t, err, env.ErrRuleValidation)
}

func TestNewGroup_RejectsUndeclaredLinkTargets(t *testing.T) {
	_, err := NewGroup(GroupConfig{
		Groups: map[string][]string{"red": {"alice"}},
		Links:  map[string][]string{"red": {"ghost"}},
	})
	assert.ErrorIs(t, err, env.ErrRuleValidation)

	_, err = NewGroup(GroupConfig{
		Groups: map[string][]string{"red": {"alice"}},
		Links:  map[string][]string{"ghost": {"red"}},
	})
	assert.ErrorIs(t, err, env.ErrRuleValidation)
}

func TestGroup_Refresh_MembersSeeOwnGroupOnly(t *testing.T) {
	g, err := NewGroup(GroupConfig{
		Groups: map[string][]string{
			"red":  {"alice", "bob"},
			"blue": {"carol"},
		},
	})
	require.NoError(t, err)

	st := newState("alice", "bob", "carol")
	vm := env.NewVisibilityMap()
	require.NoError(t, g.Refresh(context.Background(), st, vm))

	assert.Equal(t, []string{"alice", "bob"}, vm.Visible("alice"))
	assert.Equal(t, []string{"carol"}, vm.Visible("carol"))
	assert.False(t, vm.CanSee("alice", "carol"))
	assert.False(t, vm.CanSee("carol", "alice"))
}

func TestGroup_Refresh_LinksExtendVisibility(t *testing.T) {
	g, err := NewGroup(GroupConfig{
		Groups: map[string][]string{
			"red":  {"alice"},
			"blue": {"bob"},
		},
		Links: map[string][]string{"red": {"blue"}},
	})
	require.NoError(t, err)

	st := newState("alice", "bob")
	vm := env.NewVisibilityMap()
	require.NoError(t, g.Refresh(context.Background(), st, vm))

	assert.Equal(t, []string{"alice", "bob"}, vm.Visible("alice"))
	// Links are directed.
	assert.Equal(t, []string{"bob"}, vm.Visible("bob"))
}

func TestGroup_Refresh_TransitiveLinks(t *testing.T) {
	cfg := GroupConfig{
		Groups: map[string][]string{
			"red":   {"alice"},
			"blue":  {"bob"},
			"green": {"carol"},
		},
		Links: map[string][]string{
			"red":  {"blue"},
			"blue": {"green"},
		},
	}

	oneHop, err := NewGroup(cfg)
	require.NoError(t, err)
	st := newState("alice", "bob", "carol")
	vm := env.NewVisibilityMap()
	require.NoError(t, oneHop.Refresh(context.Background(), st, vm))
	assert.False(t, vm.CanSee("alice", "carol"))

	cfg.Transitive = true
	transitive, err := NewGroup(cfg)
	require.NoError(t, err)
	vm = env.NewVisibilityMap()
	require.NoError(t, transitive.Refresh(context.Background(), st, vm))
	assert.True(t, vm.CanSee("alice", "carol"))
}

func TestGroup_Refresh_UngroupedActorSeesOnlySelf(t *testing.T) {
	g, err := NewGroup(GroupConfig{
		Groups: map[string][]string{"red": {"alice"}},
	})
	require.NoError(t, err)

	st := newState("alice", "loner")
	vm := env.NewVisibilityMap()
	require.NoError(t, g.Refresh(context.Background(), st, vm))

	assert.Equal(t, []string{"loner"}, vm.Visible("loner"))
}

func TestGroup_Refresh_IgnoresMembersOutsideRoster(t *testing.T) {
	g, err := NewGroup(GroupConfig{
		Groups: map[string][]string{"red": {"alice", "ghost"}},
	})
	require.NoError(t, err)

	st := newState("alice")
	vm := env.NewVisibilityMap()
	require.NoError(t, g.Refresh(context.Background(), st, vm))
	require.NoError(t, vm.Validate(st.Roster()))
	assert.Equal(t, []string{"alice"}, vm.Visible("alice"))
}
