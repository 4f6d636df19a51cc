package broadcast_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentsweep/quota-server/app/domain/entities"
	"github.com/commentsweep/quota-server/app/internal/broadcast"
)

func recv(t *testing.T, ch <-chan entities.Snapshot) entities.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "channel closed")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return entities.Snapshot{}
	}
}

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())
	defer hub.Close()

	_, ch1 := hub.Subscribe()
	_, ch2 := hub.Subscribe()
	require.Equal(t, 2, hub.Count())

	hub.Publish(entities.Snapshot{Used: 42})

	assert.Equal(t, int64(42), recv(t, ch1).Used)
	assert.Equal(t, int64(42), recv(t, ch2).Used)
}

func TestHub_SendToSeedsSingleSubscriber(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())
	defer hub.Close()

	id1, ch1 := hub.Subscribe()
	_, ch2 := hub.Subscribe()

	hub.SendTo(id1, entities.Snapshot{Used: 7})

	assert.Equal(t, int64(7), recv(t, ch1).Used)
	select {
	case snap := <-ch2:
		t.Fatalf("unexpected snapshot on second subscriber: %+v", snap)
	default:
	}
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())
	defer hub.Close()

	_, slow := hub.Subscribe()

	// Fill the buffer and one more; the overflowing publish drops the
	// subscriber and closes its channel.
	for i := 0; i < 32; i++ {
		hub.Publish(entities.Snapshot{Used: int64(i)})
	}
	assert.Equal(t, 0, hub.Count())

	// Drain: the channel must terminate with a close, not block.
	open := 0
	for range slow {
		open++
	}
	assert.LessOrEqual(t, open, 16)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())
	defer hub.Close()

	id, ch := hub.Subscribe()
	hub.Unsubscribe(id)
	hub.Unsubscribe(id) // second call is a no-op

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.Equal(t, 0, hub.Count())
}

func TestHub_CloseRejectsNewSubscribers(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())

	_, ch := hub.Subscribe()
	hub.Close()

	_, ok := <-ch
	assert.False(t, ok, "existing channel should close on hub close")

	_, late := hub.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "post-close subscription should get a closed channel")
}
