package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePublishReceive(t *testing.T) {
	q := NewQueue[string](4)
	defer q.Close()

	q.Publish("first")
	q.Publish("second")

	v, err := q.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = q.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue[int](2)
	defer q.Close()

	q.Publish(1)
	q.Publish(2)
	q.Publish(3)

	v, err := q.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v, "oldest pending value should be dropped")

	stats := q.Stats()
	assert.Equal(t, int64(3), stats.Published)
	assert.Equal(t, int64(1), stats.Dropped)
}

func TestQueueReceiveHonorsContext(t *testing.T) {
	q := NewQueue[int](1)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueCloseStopsChannel(t *testing.T) {
	q := NewQueue[int](1)
	q.Close()
	q.Close() // idempotent

	_, ok := <-q.Chan()
	assert.False(t, ok)

	q.Publish(1) // must not panic
	assert.Equal(t, int64(1), q.Stats().Dropped)
}
