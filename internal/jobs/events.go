package jobs

import (
	"sync"
	"time"

	"subtraction-builder/internal/domain"
)

// defaultCapacity bounds the event buffer when no capacity is given.
const defaultCapacity = 500

// EventType classifies messages emitted during a build.
type EventType string

const (
	EventTypeStatus EventType = "status"
	EventTypeStep   EventType = "step"
	EventTypeResult EventType = "result"
	EventTypeError  EventType = "error"
)

// Event is a sequenced record consumed by polling clients.
type Event struct {
	Seq           int64            `json:"seq"`
	Timestamp     time.Time        `json:"timestamp"`
	JobID         string           `json:"jobId"`
	SubtractionID string           `json:"subtractionId,omitempty"`
	Type          EventType        `json:"type"`
	Status        domain.JobStatus `json:"status,omitempty"`
	Step          string           `json:"step,omitempty"`
	StepStatus    string           `json:"stepStatus,omitempty"`
	Message       string           `json:"message,omitempty"`
	FinalDir      string           `json:"finalDir,omitempty"`
}

// EventBus stores recent events and serves incremental reads by sequence.
type EventBus struct {
	mu       sync.RWMutex
	nextSeq  int64
	capacity int
	events   []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(capacity int) *EventBus {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &EventBus{
		capacity: capacity,
		events:   make([]Event, 0, capacity),
	}
}

// Publish appends one event, assigning its sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if overflow := len(b.events) - b.capacity; overflow > 0 {
		kept := make([]Event, b.capacity)
		copy(kept, b.events[overflow:])
		b.events = kept
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Latest returns the highest sequence assigned so far.
func (b *EventBus) Latest() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
