package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/convene/internal/message"
)

func TestBuffer_AddMessages_DropsOldestBeyondCapacity(t *testing.T) {
	b := NewBuffer(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := b.AddMessages(ctx, []*message.Message{
			message.New("alice", fmt.Sprintf("msg %d", i)),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, b.Len())
	out, err := b.Search(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	// Newest first; msg 0 and 1 were dropped.
	assert.Equal(t, "msg 4", out[0].Content)
	assert.Equal(t, "msg 2", out[2].Content)
}

func TestBuffer_Search_SubstringCaseInsensitive(t *testing.T) {
	b := NewBuffer(0)
	ctx := context.Background()
	require.NoError(t, b.AddMessages(ctx, []*message.Message{
		message.New("alice", "the Quick brown fox"),
		message.New("bob", "slow snail"),
		message.New("carol", "QUICK thinking"),
	}))

	out, err := b.Search(ctx, "quick", 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "carol", out[0].Sender)
	assert.Equal(t, "alice", out[1].Sender)
}

func TestBuffer_Search_LimitApplies(t *testing.T) {
	b := NewBuffer(0)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, b.AddMessages(ctx, []*message.Message{
			message.New("alice", "hello"),
		}))
	}

	out, err := b.Search(ctx, "hello", 4)
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer(0)
	ctx := context.Background()
	require.NoError(t, b.AddMessages(ctx, []*message.Message{message.New("alice", "hi")}))

	require.NoError(t, b.Clear(ctx))
	assert.Equal(t, 0, b.Len())
}
