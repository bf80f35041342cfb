package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribeAndEmit(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	bus.Emit(Event{Kind: EventMessageReceived, SessionID: "s1", Text: "hello"})
	bus.Emit(Event{Kind: EventStageChanged, SessionID: "s1", Stage: 2})

	ev := <-ch
	assert.Equal(t, EventMessageReceived, ev.Kind)
	assert.Equal(t, "hello", ev.Text)
	assert.Equal(t, uint64(1), ev.Sequence)
	assert.False(t, ev.Timestamp.IsZero())

	ev = <-ch
	assert.Equal(t, EventStageChanged, ev.Kind)
	assert.Equal(t, uint64(2), ev.Sequence, "sequence must be monotonic")
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer bus.Unsubscribe(a)
	defer bus.Unsubscribe(b)

	bus.Emit(Event{Kind: EventErrorOccurred, Text: "boom"})

	assert.Equal(t, "boom", (<-a).Text)
	assert.Equal(t, "boom", (<-b).Text)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	// Channel is closed and no longer receives.
	bus.Emit(Event{Kind: EventMessageReceived, Text: "after"})
	_, ok := <-ch
	assert.False(t, ok)

	// Unknown or nil channels are ignored.
	bus.Unsubscribe(ch)
	bus.Unsubscribe(nil)
}

func TestEventBus_EmitNeverBlocks(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nobody drains ch; emits beyond the buffer must drop, not stall.
		for i := 0; i < 200; i++ {
			bus.Emit(Event{Kind: EventMessageReceived, Text: fmt.Sprintf("m%d", i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow subscriber")
	}
	assert.Len(t, ch, 50)
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// Emitting after close is a no-op.
	bus.Emit(Event{Kind: EventMessageReceived})
}

func TestNewProgressIndicator(t *testing.T) {
	ind := NewProgressIndicator(3, 7)
	assert.Equal(t, 3, ind.Current)
	assert.Equal(t, 7, ind.Total)
	assert.Equal(t, 42, ind.Percentage)
	assert.Equal(t, "Step 3 of 7", ind.ValueText)

	zero := NewProgressIndicator(1, 0)
	require.Equal(t, 0, zero.Percentage)
}
