package messaging

import (
	"context"
	"encoding/json"
)

// PublisherInterface defines the contract for event publishing
// This allows for easy mocking in tests
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

// Handler processes one decoded delivery. Returning an error nacks it.
type Handler func(ctx context.Context, routingKey string, body json.RawMessage) error

// ConsumerInterface is implemented by Consumer.
type ConsumerInterface interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

var _ PublisherInterface = (*Publisher)(nil)
var _ ConsumerInterface = (*Consumer)(nil)
