// Package queue is the durable work queue between the HTTP surface and
// the worker: one queue, one job type, at-least-once delivery via
// manual ack. Connections are lazy and reconnect on disconnect rather
// than fail outright, since a broker restart should not take down
// publishing or consuming.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// QueueName is the single queue this service publishes to and
// consumes from.
const QueueName = "instance_creation"

// transportLostInterval and otherFailureInterval are Consume's two
// reconnect tiers: a lost connection to the broker itself is expected
// to clear quickly (a restart, a network blip), while any other
// failure in the consume loop (a bad QueueDeclare, a Qos rejection)
// backs off longer since retrying immediately is less likely to help.
const (
	transportLostInterval = 5 * time.Second
	otherFailureInterval  = 10 * time.Second
)

// transportError marks a failure to reach or stay connected to the
// broker itself, as opposed to a failure setting up the channel once
// connected.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// ErrUnhandled marks a handler failure that the job store has not
// already recorded as a terminal event. consumeOnce nacks (for
// redelivery) rather than acks a delivery whose handler error wraps
// this, the one signal that separates a caught business failure
// (already reported via the job store, safe to drop) from a genuinely
// unexpected one.
var ErrUnhandled = errors.New("unhandled job failure")

// Queue is a durable publisher backed by a lazily (re)established AMQP
// channel.
type Queue struct {
	url  string
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
}

// NewQueue builds a Queue dialing url on first use.
func NewQueue(url string, logger *zap.Logger) *Queue {
	return &Queue{url: url, log: logger}
}

// channel returns a usable channel, reconnecting if the prior
// connection or channel has closed.
func (q *Queue) channel() (*amqp.Channel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn == nil || q.conn.IsClosed() || q.ch == nil || q.ch.IsClosed() {
		if q.conn != nil && !q.conn.IsClosed() {
			q.conn.Close()
		}
		conn, err := amqp.Dial(q.url)
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, err
		}
		if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, err
		}
		q.conn = conn
		q.ch = ch
	}
	return q.ch, nil
}

// Publish enqueues payload as a persistent message, surviving a broker
// restart.
func (q *Queue) Publish(ctx context.Context, payload []byte) error {
	ch, err := q.channel()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	})
}

// Close releases the underlying connection.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn != nil && !q.conn.IsClosed() {
		return q.conn.Close()
	}
	return nil
}

// Handler processes one job's body. Returning an error generally only
// logs — a business failure has already recorded its own error state
// in the job store, and redelivering it would just repeat the same
// failure — unless the error wraps ErrUnhandled, in which case the
// delivery is nacked for redelivery instead of acked.
type Handler func(ctx context.Context, body []byte) error

// Consume runs handler against every message on QueueName until ctx is
// cancelled, reconnecting on disconnect. It blocks; run it in its own
// goroutine. A lost connection to the broker backs off
// transportLostInterval before redialing; any other failure in the
// consume loop backs off the longer otherFailureInterval.
func Consume(ctx context.Context, url string, logger *zap.Logger, handler Handler) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := consumeOnce(ctx, url, logger, handler)
		if err == nil {
			return nil
		}

		wait := otherFailureInterval
		var te *transportError
		if errors.As(err, &te) {
			wait = transportLostInterval
			logger.Warn("rabbitmq connection lost, reconnecting", zap.Error(err))
		} else {
			logger.Warn("consume loop failed, retrying", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func consumeOnce(ctx context.Context, url string, logger *zap.Logger, handler Handler) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return &transportError{err}
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return &transportError{err}
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	logger.Info("waiting for instance creation jobs")
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return nil
			}
			return &transportError{amqpErr}
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			handleDelivery(ctx, logger, handler, d)
		}
	}
}

// handleDelivery runs handler and acks or nacks the delivery based on
// the result: ErrUnhandled means the broker should redeliver, anything
// else (including no error) is acked away.
func handleDelivery(ctx context.Context, logger *zap.Logger, handler Handler, d amqp.Delivery) {
	err := handler(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			logger.Warn("failed to ack delivery", zap.Error(ackErr))
		}
		return
	}

	logger.Error("job handler failed", zap.Error(err))
	if errors.Is(err, ErrUnhandled) {
		if nackErr := d.Nack(false, true); nackErr != nil {
			logger.Warn("failed to nack delivery", zap.Error(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		logger.Warn("failed to ack delivery", zap.Error(ackErr))
	}
}
