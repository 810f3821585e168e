package event

import (
	"context"

	"github.com/viant/kproc/internal/clock"
	"github.com/viant/kproc/service/messaging"
)

// Publisher writes events to a queue.
type Publisher[T any] struct {
	queue messaging.Queue[Event[T]]
}

// NewPublisher creates a publisher on queue.
func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

func (p *Publisher[T]) stamp(event *Event[T]) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = clock.Now()
	}
}

// Publish blocks until the event is queued or ctx is done.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	p.stamp(event)
	return p.queue.Publish(ctx, event)
}

// TryPublish queues the event without blocking.
func (p *Publisher[T]) TryPublish(event *Event[T]) error {
	p.stamp(event)
	return p.queue.TryPublish(event)
}

// Consume returns the next message; the caller acknowledges it.
func (p *Publisher[T]) Consume(ctx context.Context) (messaging.Message[Event[T]], error) {
	return p.queue.Consume(ctx)
}
