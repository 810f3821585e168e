// Package messaging defines the queue abstraction that carries lifecycle
// events from process goroutines to the service's background consumer.
package messaging

import (
	"context"
	"errors"
)

// ErrFull is returned by TryPublish when the queue has no free capacity.
var ErrFull = errors.New("queue full")

// ErrProcessed is returned when a message is acknowledged twice.
var ErrProcessed = errors.New("message already processed")

// Queue is a message queue for any payload type.
type Queue[T any] interface {
	// Publish adds a message, blocking until there is room or ctx is done.
	Publish(ctx context.Context, t *T) error

	// TryPublish adds a message without blocking; it returns ErrFull when
	// the queue is at capacity.
	TryPublish(t *T) error

	// Consume blocks until a message is available or ctx is done.
	Consume(ctx context.Context) (Message[T], error)
}

// Message is a message retrieved from a queue.
type Message[T any] interface {
	// ID returns the message identifier.
	ID() string

	// T returns the payload.
	T() *T

	// Ack marks the message processed.
	Ack() error

	// Nack marks the message failed; the queue may redeliver it.
	Nack(err error) error
}
