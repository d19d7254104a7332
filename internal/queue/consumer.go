package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditFile is the file under the audit directory that receives one line
// per consumed event.
const AuditFile = "audit.log"

// StartAuditConsumer connects to RabbitMQ, declares the user event queues
// (durable) and appends every message to dir/audit.log. It reconnects with
// backoff until ctx is cancelled, rejecting messages it cannot handle so
// the server keeps operating.
func StartAuditConsumer(ctx context.Context, url, dir string, logger *zap.Logger) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("audit consumer: dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, dir, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("audit consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("audit consumer: set QoS failed", zap.Error(err))
	}

	deliveries := make(chan amqp.Delivery)
	done := make(chan struct{})
	defer close(done)
	for _, queue := range []string{UserRegisteredQueue, UserLoggedInQueue} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", queue, err)
		}
		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", queue, err)
		}
		go forward(msgs, deliveries, done)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("channel closed")
		case d := <-deliveries:
			if err := appendAudit(dir, d.RoutingKey, d.Body); err != nil {
				logger.Error("audit consumer: handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// forward copies msgs onto out until msgs is closed or done is.
func forward(msgs <-chan amqp.Delivery, out chan<- amqp.Delivery, done <-chan struct{}) {
	for d := range msgs {
		select {
		case out <- d:
		case <-done:
			return
		}
	}
}

func appendAudit(dir, queue string, body []byte) error {
	line, err := formatAuditLine(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, AuditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

// formatAuditLine renders one event as a single human-friendly line.
func formatAuditLine(queue string, body []byte) (string, error) {
	switch queue {
	case UserRegisteredQueue:
		var ev UserRegisteredEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queue, err)
		}
		return fmt.Sprintf("[%s] User registered | username=%q | email=%q\n",
			ev.RegisteredAt, ev.Username, ev.Email), nil
	case UserLoggedInQueue:
		var ev UserLoggedInEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queue, err)
		}
		return fmt.Sprintf("[%s] User logged in | username=%q | remote_ip=%q\n",
			ev.LoggedInAt, ev.Username, ev.RemoteIP), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
