// Package events provides the in-process event bus used to decouple
// modules, e.g. pickup point saves closing their location session.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName is the routing key handlers subscribe to.
	EventName() string
	// OccurredAt returns when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// Handler processes events it subscribed to.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers.
type Bus interface {
	// Publish runs handlers asynchronously. Failures are logged, not returned.
	Publish(ctx context.Context, event Event)

	// PublishSync runs handlers in subscription order and returns the first error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers handler for events whose EventName matches eventName.
	Subscribe(eventName string, handler Handler)

	// Wait blocks until every asynchronous handler has returned.
	Wait()
}
