package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Consumer reads events from a durable queue bound to the shared exchange.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewConsumer declares queue, binds it with each binding key and sets a
// prefetch of prefetch unacked deliveries.
func NewConsumer(rabbitmqURL, queue string, prefetch int, bindings ...string) (*Consumer, error) {
	conn, channel, err := dial(rabbitmqURL)
	if err != nil {
		return nil, err
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	for _, key := range bindings {
		if err := channel.QueueBind(queue, key, ExchangeName, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue %s to %s: %w", queue, key, err)
		}
	}
	if prefetch > 0 {
		if err := channel.Qos(prefetch, 0, false); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	log.Info().Str("queue", queue).Strs("bindings", bindings).Msg("RabbitMQ consumer ready")
	return &Consumer{conn: conn, channel: channel, queue: queue}, nil
}

// Consume blocks until ctx is cancelled or the channel closes. Deliveries
// that fail to decode are dropped; handler errors requeue once.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, handler Handler) {
	if !json.Valid(d.Body) {
		log.Warn().Str("routing_key", d.RoutingKey).Str("message_id", d.MessageId).Msg("dropping malformed event")
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, d.RoutingKey, json.RawMessage(d.Body)); err != nil {
		log.Error().Err(err).
			Str("routing_key", d.RoutingKey).
			Str("message_id", d.MessageId).
			Bool("redelivered", d.Redelivered).
			Msg("failed to handle event")
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

// Close closes the consumer channel and connection.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing RabbitMQ channel")
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
