package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/funnelsync/backend/internal/domain/events"
	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
)

// EventType is an alias to the domain type
type EventType = events.EventType

// CardEventPayload is the payload carried by card events on the bus.
type CardEventPayload struct {
	Card       *models.Card `json:"card"`
	OldStageID string       `json:"old_stage_id,omitempty"`
	NewStageID string       `json:"new_stage_id,omitempty"`
	// ChangedFields names what an update touched, so subscribers can
	// decide whether a push-back is warranted.
	ChangedFields []string `json:"changed_fields,omitempty"`
}

// PlatformEvent represents an event envelope on the bus
type PlatformEvent struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// EventHandler is a function that handles an event.
// Using the type from ports to ensure interface compatibility.
type EventHandler = ports.EventHandler

// EventBus manages the in-process publish-subscribe system that
// decouples CRM writes from their fire-and-forget side effects.
// It implements ports.EventPublisher.
type EventBus struct {
	handlers map[EventType][]EventHandler
	mu       sync.RWMutex
}

// Ensure EventBus implements ports.EventPublisher at compile time
var _ ports.EventPublisher = (*EventBus)(nil)

// NewEventBus creates a new EventBus instance
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
// Returns an unsubscribe function
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)

	idx := len(eb.handlers[eventType]) - 1
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		handlers := eb.handlers[eventType]
		if idx < len(handlers) {
			eb.handlers[eventType] = append(handlers[:idx], handlers[idx+1:]...)
		}
	}
}

// Publish publishes an event to all registered handlers in sequence
func (eb *EventBus) Publish(ctx context.Context, eventType EventType, payload interface{}) error {
	eb.mu.RLock()
	handlers := make([]EventHandler, len(eb.handlers[eventType]))
	copy(handlers, eb.handlers[eventType])
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	event := PlatformEvent{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}

	for _, handler := range handlers {
		if err := handler(ctx, event.Payload); err != nil {
			return fmt.Errorf("EventBus handler error for %s: %w", eventType, err)
		}
	}

	return nil
}

// PublishAsync publishes an event asynchronously, decoupled from the
// caller's request/transaction lifecycle. Handler errors are logged
// and never propagate to the originating write.
func (eb *EventBus) PublishAsync(eventType EventType, payload interface{}) {
	go func() {
		if err := eb.Publish(context.Background(), eventType, payload); err != nil {
			log.Printf("EventBus async publish error: %v", err)
		}
	}()
}

// Clear removes all handlers (useful for testing)
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers = make(map[EventType][]EventHandler)
}
