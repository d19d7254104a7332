package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher delivers a domain event to the queue named by routingKey.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// AMQPPublisher publishes JSON events to RabbitMQ, dialing once per publish.
type AMQPPublisher struct {
	url         string
	dialTimeout time.Duration
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url, dialTimeout: 3 * time.Second}
}

// Publish declares the durable queue (idempotent) and sends the event as
// a persistent message on the default exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", routingKey, err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare %s: %w", routingKey, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", routingKey, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", routingKey, err)
	}
	return nil
}

// AsyncPublisher hands events to inner on a background goroutine so the
// request never waits on the broker. Failures are logged.
type AsyncPublisher struct {
	inner   Publisher
	timeout time.Duration
	logger  *zap.Logger
}

func NewAsyncPublisher(inner Publisher, logger *zap.Logger) *AsyncPublisher {
	return &AsyncPublisher{inner: inner, timeout: 10 * time.Second, logger: logger}
}

func (p *AsyncPublisher) Publish(_ context.Context, routingKey string, event any) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.inner.Publish(ctx, routingKey, event); err != nil {
			p.logger.Warn("publish event failed", zap.String("routing_key", routingKey), zap.Error(err))
		}
	}()
	return nil
}
