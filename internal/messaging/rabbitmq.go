package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	ExchangeName = "wailsalutem.events"
	ExchangeType = "topic"
)

// Publisher handles publishing events to RabbitMQ
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// dial connects and declares the shared topic exchange.
func dial(rabbitmqURL string) (*amqp.Connection, *amqp.Channel, error) {
	log.Info().Str("url", maskPassword(rabbitmqURL)).Msg("connecting to RabbitMQ")

	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return conn, channel, nil
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(rabbitmqURL string) (*Publisher, error) {
	conn, channel, err := dial(rabbitmqURL)
	if err != nil {
		return nil, err
	}

	log.Info().Str("exchange", ExchangeName).Msg("connected to RabbitMQ")

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: ExchangeName,
	}, nil
}

// Publish publishes an event to RabbitMQ with the specified routing key
func (p *Publisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	if p == nil || p.channel == nil {
		log.Warn().Str("routing_key", routingKey).Msg("RabbitMQ publisher not initialized, skipping event")
		return nil
	}

	body, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	messageID := ""
	if e, ok := eventData.(interface{ ID() string }); ok {
		messageID = e.ID()
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    messageID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", routingKey, err)
	}

	log.Debug().Str("routing_key", routingKey).Msg("published event")
	return nil
}

// Close closes the RabbitMQ connection
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing RabbitMQ channel")
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// maskPassword hides credentials in a broker URL.
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
