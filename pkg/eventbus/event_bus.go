// Package eventbus provides event-driven communication between the API, the
// ledger, and the workers, and the real-time progress channel.
package eventbus

import (
	"context"

	"github.com/usekora/kora/pkg/events"
)

// Event is any payload with a declared event type.
type Event interface {
	GetType() events.EventType
}

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event any) error

// EventPublisher publishes an event to a topic with a partitioning/routing
// key.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
}

// EventSubscriber routes decoded events from a topic to registered handlers.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context, topic string) error
}

// EventBus combines publishing and subscribing over one transport.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
