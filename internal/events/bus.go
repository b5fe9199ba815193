// Package events provides the in-process event bus connecting the
// evaluation pipeline to the streaming endpoints and background jobs.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	EvaluationStarted    EventType = "EVALUATION_STARTED"
	ReportGenerated      EventType = "REPORT_GENERATED"
	BatchCompleted       EventType = "BATCH_COMPLETED"
	BenchmarksRefreshed  EventType = "BENCHMARKS_REFRESHED"
	BackupCompleted      EventType = "BACKUP_COMPLETED"
	MaintenanceCompleted EventType = "MAINTENANCE_COMPLETED"
	ErrorOccurred        EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type the bus can carry, in a stable
// order. Streaming endpoints subscribe to all of these by default.
var AllEventTypes = []EventType{
	EvaluationStarted,
	ReportGenerated,
	BatchCompleted,
	BenchmarksRefreshed,
	BackupCompleted,
	MaintenanceCompleted,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Handler processes one published event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(event *Event)

// SubscriptionID identifies one Subscribe or SubscribeAll registration so
// it can be removed later.
type SubscriptionID int64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is a synchronous publish/subscribe event bus. Subscription order is
// preserved per event type.
type Bus struct {
	mu       sync.RWMutex
	nextID   SubscriptionID
	handlers map[EventType][]subscription
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
		log:      log.With().Str("service", "events").Logger(),
	}
}

// Subscribe registers a handler for one event type and returns its
// subscription id.
func (b *Bus) Subscribe(eventType EventType, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: b.nextID, handler: handler})
	return b.nextID
}

// SubscribeAll registers a handler for every known event type under a
// single subscription id.
func (b *Bus) SubscribeAll(handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	for _, eventType := range AllEventTypes {
		b.handlers[eventType] = append(b.handlers[eventType], subscription{id: b.nextID, handler: handler})
	}
	return b.nextID
}

// Unsubscribe removes a registration from every event type it was attached
// to. Unknown ids are ignored. Long-lived connections must unsubscribe on
// disconnect or their handlers stay reachable forever.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for eventType, subs := range b.handlers {
		kept := subs[:0]
		for _, sub := range subs {
			if sub.id != id {
				kept = append(kept, sub)
			}
		}
		b.handlers[eventType] = kept
	}
}

// Publish emits an event to all handlers subscribed to its type.
func (b *Bus) Publish(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[eventType]))
	copy(subs, b.handlers[eventType])
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		Int("handlers", len(subs)).
		Msg("Event published")

	for _, sub := range subs {
		sub.handler(event)
	}
}

// PublishError emits an error event.
func (b *Bus) PublishError(module string, err error, context map[string]interface{}) {
	b.Publish(ErrorOccurred, module, map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	})
}
