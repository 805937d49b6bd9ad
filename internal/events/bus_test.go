package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(4)
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), Event{
		Type:     CycleStarted,
		ThreadID: "creation_1_20260901_080000",
	}))

	select {
	case ev := <-ch:
		assert.Equal(t, CycleStarted, ev.Type)
		assert.Equal(t, "creation_1_20260901_080000", ev.ThreadID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSubscribeFiltersByType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(4, AwaitingApproval)
	defer cancel()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, Event{Type: CycleStarted}))
	require.NoError(t, bus.Publish(ctx, Event{Type: AwaitingApproval}))

	select {
	case ev := <-ch:
		assert.Equal(t, AwaitingApproval, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("filtered event not delivered")
	}
	assert.Empty(t, ch)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	_, cancel := bus.Subscribe(1)
	defer cancel()

	ctx := context.Background()
	// Far more events than the buffer holds; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(ctx, Event{Type: CycleStarted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestClosedBusRejectsPublish(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	require.NoError(t, bus.Close())
	assert.Error(t, bus.Publish(context.Background(), Event{Type: CycleStarted}))

	_, open := <-ch
	assert.False(t, open, "subscriber channel should be closed")
}
