package engine

// This file implements the event stream the presentation layer subscribes
// to. The engine announces stage transitions, received messages,
// clarification suggestions, and errors here instead of touching any
// rendering concern itself; screen-reader announcements hang off these
// events.

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"intake/internal/logging"
)

// EventKind identifies what the engine is announcing.
type EventKind string

const (
	EventStageChanged           EventKind = "stage_changed"
	EventMessageReceived        EventKind = "message_received"
	EventClarificationSuggested EventKind = "clarification_suggested"
	EventErrorOccurred          EventKind = "error_occurred"
	EventSessionCompleted       EventKind = "session_completed"
)

// ProgressIndicator is the step-N-of-M payload attached to stage changes,
// shaped for aria-style announcements.
type ProgressIndicator struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	ValueText  string `json:"value_text"` // "Step 3 of 7"
}

// NewProgressIndicator builds the indicator for a stage position.
func NewProgressIndicator(current, total int) ProgressIndicator {
	pct := 0
	if total > 0 {
		pct = int(float64(current) / float64(total) * 100)
	}
	return ProgressIndicator{
		Current:    current,
		Total:      total,
		Percentage: pct,
		ValueText:  fmt.Sprintf("Step %d of %d", current, total),
	}
}

// Event is one announcement on the stream.
type Event struct {
	Kind      EventKind
	SessionID string
	Text      string
	Stage     int
	StageName string
	Progress  *ProgressIndicator
	Sequence  uint64
	Timestamp time.Time
}

// EventBus dispatches engine events to subscribers. Emit never blocks: a
// subscriber that falls behind misses events rather than stalling a turn.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	sequence    atomic.Uint64
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() <-chan Event {
	ch := make(chan Event, 50)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *EventBus) Unsubscribe(ch <-chan Event) {
	if ch == nil {
		return
	}
	target := reflect.ValueOf(ch).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if reflect.ValueOf(sub).Pointer() == target {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

// Emit sends an event to all subscribers. Safe from any goroutine.
func (b *EventBus) Emit(event Event) {
	event.Sequence = b.sequence.Add(1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	logging.Events("%s session=%s stage=%d %s", event.Kind, event.SessionID, event.Stage, event.Text)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Slow subscriber: drop rather than block the turn.
		}
	}
}

// Close closes all subscriber channels.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}
