package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")

	evt := SSEEvent{Type: EventRunImproved, Data: map[string]any{"cost": 42}}
	b.Publish("r1", evt)
	b.Publish("other", SSEEvent{Type: "ignored"})

	select {
	case got := <-ch:
		assert.Equal(t, evt.Type, got.Type)
		assert.Equal(t, 42, got.Data["cost"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe("r1", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	// second unsubscribe is a no-op
	b.Unsubscribe("r1", ch)
	b.Publish("r1", evt)
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r")
	defer b.Unsubscribe("r", ch)
	for i := 0; i < 100; i++ {
		b.Publish("r", SSEEvent{Type: EventRunImproved})
	}
	assert.Equal(t, cap(ch), len(ch))
}

func TestRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	require.NoError(t, err)
	defer b.Close()

	ch := b.Subscribe("run1")
	b.Publish("run1", SSEEvent{Type: EventRunCompleted, Data: map[string]any{"cost": 7}})
	select {
	case got := <-ch:
		assert.Equal(t, EventRunCompleted, got.Type)
		// JSON numbers decode as float64
		assert.Equal(t, 7.0, got.Data["cost"])
		assert.True(t, got.terminal())
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}

	b.Unsubscribe("run1", ch)
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestRedisBrokerBadURL(t *testing.T) {
	_, err := NewRedisBroker("not-a-url")
	assert.Error(t, err)
}
