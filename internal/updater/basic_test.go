package updater

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/convene/internal/env"
	"github.com/fyrsmithlabs/convene/internal/message"
	"github.com/fyrsmithlabs/convene/internal/resource"
)

type recordingMemory struct {
	mu      sync.Mutex
	msgs    []*message.Message
	failFor int // fail this many times before succeeding
}

func (r *recordingMemory) AddMessages(_ context.Context, msgs []*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor > 0 {
		r.failFor--
		return errors.New("write failed")
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingMemory) Search(context.Context, string, int) ([]*message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*message.Message(nil), r.msgs...), nil
}

func (r *recordingMemory) Clear(context.Context) error {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
	return nil
}

func (r *recordingMemory) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type noopActor struct{ id string }

func (n *noopActor) ID() string { return n.id }
func (n *noopActor) TakeTurn(context.Context, string) (*message.Message, error) {
	return message.New(n.id, "noop"), nil
}
func (n *noopActor) Reset(context.Context) error { return nil }

type noopOrder struct{}

func (noopOrder) Next(context.Context, *env.State) ([]string, error) { return nil, nil }

type noopVisibility struct{}

func (noopVisibility) Refresh(_ context.Context, st *env.State, vm *env.VisibilityMap) error {
	for _, id := range st.Roster() {
		vm.Set(id, st.Roster())
	}
	return nil
}

type noopSelector struct{}

func (noopSelector) Select(context.Context, []env.Outcome) ([]*message.Message, error) {
	return nil, nil
}

type noopDescriber struct{}

func (noopDescriber) Describe(context.Context, *env.ActorView) (string, error) { return "", nil }

// testEnv builds an environment whose handles expose recording memories.
// tool maps actor ids to a dedicated tool memory.
func testEnv(t *testing.T, u *Basic, mems map[string]*recordingMemory, tool map[string]*recordingMemory) *env.Environment {
	t.Helper()

	handles := make(map[string]*env.Handle, len(mems))
	for id, mem := range mems {
		h := &env.Handle{Actor: &noopActor{id: id}, Memory: mem}
		if tm, ok := tool[id]; ok {
			h.ToolMemory = tm
		}
		handles[id] = h
	}

	e, err := env.New(env.Config{}, env.Rule{
		Order:      noopOrder{},
		Visibility: noopVisibility{},
		Selector:   noopSelector{},
		Updater:    u,
		Describer:  noopDescriber{},
	}, handles, nil)
	require.NoError(t, err)
	return e
}

func fastRetry() resource.RetryConfig {
	return resource.RetryConfig{MaxRetries: 2, InitialBackoff: 1, MaxBackoff: 1, BackoffMultiplier: 1}
}

func TestBasic_Commit_BroadcastReachesEveryMemory(t *testing.T) {
	u := NewBasic(Config{}, nil)
	mems := map[string]*recordingMemory{"alice": {}, "bob": {}}
	e := testEnv(t, u, mems, nil)

	msg := message.New("alice", "hello everyone")
	require.NoError(t, u.Commit(context.Background(), []*message.Message{msg}, e))

	assert.Equal(t, 1, e.State().HistoryLen())
	assert.Equal(t, 1, mems["alice"].len())
	assert.Equal(t, 1, mems["bob"].len())
}

func TestBasic_Commit_NamedReceiversOnly(t *testing.T) {
	u := NewBasic(Config{}, nil)
	mems := map[string]*recordingMemory{"alice": {}, "bob": {}, "carol": {}}
	e := testEnv(t, u, mems, nil)

	msg := message.New("alice", "just for bob", "bob")
	require.NoError(t, u.Commit(context.Background(), []*message.Message{msg}, e))

	assert.Equal(t, 0, mems["alice"].len())
	assert.Equal(t, 1, mems["bob"].len())
	assert.Equal(t, 0, mems["carol"].len())
}

func TestBasic_Commit_UnknownReceiverNamesTheReceiver(t *testing.T) {
	u := NewBasic(Config{}, nil)
	mems := map[string]*recordingMemory{"alice": {}}
	e := testEnv(t, u, mems, nil)

	msg := message.New("alice", "hello", "mallory")
	err := u.Commit(context.Background(), []*message.Message{msg}, e)

	require.Error(t, err)
	assert.ErrorIs(t, err, env.ErrUnknownReceiver)
	assert.Contains(t, err.Error(), "mallory")
	// Nothing was committed for the failed message.
	assert.Equal(t, 0, e.State().HistoryLen())
}

func TestBasic_Commit_DeliversClones(t *testing.T) {
	u := NewBasic(Config{}, nil)
	mems := map[string]*recordingMemory{"alice": {}}
	e := testEnv(t, u, mems, nil)

	msg := message.New("alice", "original")
	require.NoError(t, u.Commit(context.Background(), []*message.Message{msg}, e))

	stored := mems["alice"].msgs[0]
	stored.Content = "mutated"
	assert.Equal(t, "original", e.State().History()[0].Content)
}

func TestBasic_Commit_ToolResponseRoutedToSender(t *testing.T) {
	u := NewBasic(Config{Retry: fastRetry()}, nil)
	mems := map[string]*recordingMemory{"alice": {}, "bob": {}}
	toolMem := &recordingMemory{}
	e := testEnv(t, u, mems, map[string]*recordingMemory{"alice": toolMem})

	msg := message.New("alice", "tool output attached")
	msg.ToolResponse = &message.ToolResponse{Tool: "search", Output: "42"}
	require.NoError(t, u.Commit(context.Background(), []*message.Message{msg}, e))

	require.Equal(t, 1, toolMem.len())
	assert.Equal(t, "search", toolMem.msgs[0].ToolResponse.Tool)
}

func TestBasic_Commit_ToolResponseRetriesTransientWrites(t *testing.T) {
	u := NewBasic(Config{Retry: fastRetry()}, nil)
	mems := map[string]*recordingMemory{"alice": {}}
	toolMem := &recordingMemory{failFor: 2}
	e := testEnv(t, u, mems, map[string]*recordingMemory{"alice": toolMem})

	msg := message.New("alice", "eventually lands")
	msg.ToolResponse = &message.ToolResponse{Tool: "search", Output: "ok"}
	require.NoError(t, u.Commit(context.Background(), []*message.Message{msg}, e))
	assert.Equal(t, 1, toolMem.len())
}

func TestBasic_Commit_ToolResponseBroadcastFallback(t *testing.T) {
	u := NewBasic(Config{ToolBroadcastFallback: true, Retry: fastRetry()}, nil)
	mems := map[string]*recordingMemory{"alice": {}, "bob": {}, "carol": {}}
	bobTool := &recordingMemory{}
	carolTool := &recordingMemory{}
	e := testEnv(t, u, mems, map[string]*recordingMemory{"bob": bobTool, "carol": carolTool})

	// Alice has no tool memory, so the response fans out to every actor
	// that exposes one.
	msg := message.New("alice", "shared tool result")
	msg.ToolResponse = &message.ToolResponse{Tool: "calc", Output: "3"}
	require.NoError(t, u.Commit(context.Background(), []*message.Message{msg}, e))

	assert.Equal(t, 1, bobTool.len())
	assert.Equal(t, 1, carolTool.len())
}

func TestBasic_Commit_ToolResponseNoDestinationIsDropped(t *testing.T) {
	u := NewBasic(Config{}, nil)
	mems := map[string]*recordingMemory{"alice": {}}
	e := testEnv(t, u, mems, nil)

	msg := message.New("alice", "tool output, nowhere to go")
	msg.ToolResponse = &message.ToolResponse{Tool: "calc", Output: "3"}
	assert.NoError(t, u.Commit(context.Background(), []*message.Message{msg}, e))
}

func TestBasic_Commit_SilenceDisabledByDefault(t *testing.T) {
	u := NewBasic(Config{}, nil)
	mems := map[string]*recordingMemory{"alice": {}}
	e := testEnv(t, u, mems, nil)

	require.NoError(t, u.Commit(context.Background(), nil, e))
	assert.Equal(t, 0, e.State().HistoryLen())
	assert.Equal(t, 0, mems["alice"].len())
}

func TestBasic_Commit_SilenceKeepsMemoriesAligned(t *testing.T) {
	u := NewBasic(Config{Silence: true}, nil)
	mems := map[string]*recordingMemory{"alice": {}, "bob": {}}
	e := testEnv(t, u, mems, nil)

	require.NoError(t, u.Commit(context.Background(), nil, e))

	require.Equal(t, 1, e.State().HistoryLen())
	assert.Equal(t, SilenceContent, e.State().History()[0].Content)
	assert.True(t, e.State().History()[0].IsSystem())
	assert.Equal(t, 1, mems["alice"].len())
	assert.Equal(t, 1, mems["bob"].len())
}
