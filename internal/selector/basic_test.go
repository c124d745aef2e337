package selector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/convene/internal/env"
	"github.com/fyrsmithlabs/convene/internal/message"
)

func outcome(sender, content string) env.Outcome {
	return env.Outcome{ActorID: sender, Message: message.New(sender, content)}
}

func contents(msgs []*message.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	bad := Config{Strategy: "bogus"}
	assert.ErrorIs(t, bad.Validate(), env.ErrConfiguration)

	bad = Config{Strategy: StrategySenders}
	assert.ErrorIs(t, bad.Validate(), env.ErrConfiguration)

	bad = Config{Strategy: StrategyPassthrough, MinLength: 10, MaxLength: 5}
	assert.ErrorIs(t, bad.Validate(), env.ErrConfiguration)
}

func TestNewBasic_RejectsBadPattern(t *testing.T) {
	_, err := NewBasic(Config{BlockedPatterns: []string{"("}})
	assert.ErrorIs(t, err, env.ErrConfiguration)
}

func TestBasic_Select_DropsFailedOutcomes(t *testing.T) {
	s, err := NewBasic(Config{})
	require.NoError(t, err)

	out, err := s.Select(context.Background(), []env.Outcome{
		outcome("alice", "kept"),
		{ActorID: "bob", Err: errors.New("turn failed")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, contents(out))
}

func TestBasic_Select_DropEmptyAndLengthBounds(t *testing.T) {
	s, err := NewBasic(Config{DropEmpty: true, MinLength: 3, MaxLength: 10})
	require.NoError(t, err)

	out, err := s.Select(context.Background(), []env.Outcome{
		outcome("a", "   "),
		outcome("b", "ok"),
		outcome("c", "just right"),
		outcome("d", "this one is far too long"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"just right"}, contents(out))
}

func TestBasic_Select_ContentBlocklists(t *testing.T) {
	s, err := NewBasic(Config{
		BlockedContent:  []string{"forbidden"},
		BlockedPatterns: []string{`\d{3}-\d{4}`},
	})
	require.NoError(t, err)

	out, err := s.Select(context.Background(), []env.Outcome{
		outcome("a", "contains forbidden word"),
		outcome("b", "call 555-1234 now"),
		outcome("c", "perfectly fine"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"perfectly fine"}, contents(out))
}

func TestBasic_Select_BlockedSenders(t *testing.T) {
	s, err := NewBasic(Config{BlockedSenders: []string{"spammer"}})
	require.NoError(t, err)

	out, err := s.Select(context.Background(), []env.Outcome{
		outcome("spammer", "buy now"),
		outcome("alice", "hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, contents(out))
}

func TestBasic_Select_SenderAllowlistStrategy(t *testing.T) {
	s, err := NewBasic(Config{
		Strategy:       StrategySenders,
		AllowedSenders: []string{"alice"},
	})
	require.NoError(t, err)

	out, err := s.Select(context.Background(), []env.Outcome{
		outcome("alice", "in"),
		outcome("bob", "out"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"in"}, contents(out))
}

func TestBasic_Select_RecentWindowKeepsNewest(t *testing.T) {
	s, err := NewBasic(Config{Strategy: StrategyRecent, Window: 2})
	require.NoError(t, err)

	old := outcome("a", "oldest")
	old.Message.CreatedAt = time.Now().Add(-time.Hour)
	mid := outcome("b", "middle")
	mid.Message.CreatedAt = time.Now().Add(-time.Minute)
	fresh := outcome("c", "newest")

	out, err := s.Select(context.Background(), []env.Outcome{old, mid, fresh})
	require.NoError(t, err)
	// Arrival order is preserved among the kept messages.
	assert.Equal(t, []string{"middle", "newest"}, contents(out))
}

func TestBasic_Select_DedupeByNormalizedContent(t *testing.T) {
	s, err := NewBasic(Config{Dedupe: true})
	require.NoError(t, err)

	out, err := s.Select(context.Background(), []env.Outcome{
		outcome("a", "Hello   World"),
		outcome("b", "hello world"),
		outcome("c", "different"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello   World", "different"}, contents(out))
}

func TestBasic_Select_MaxSelectionsCap(t *testing.T) {
	s, err := NewBasic(Config{MaxSelections: 2})
	require.NoError(t, err)

	out, err := s.Select(context.Background(), []env.Outcome{
		outcome("a", "one"),
		outcome("b", "two"),
		outcome("c", "three"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, contents(out))
}

func TestBasic_Select_EmptyResultIsNotAnError(t *testing.T) {
	s, err := NewBasic(Config{DropEmpty: true})
	require.NoError(t, err)

	out, err := s.Select(context.Background(), []env.Outcome{outcome("a", "")})
	require.NoError(t, err)
	assert.Empty(t, out)
}
