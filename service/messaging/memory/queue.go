package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/kproc/internal/clock"
	"github.com/viant/kproc/internal/idgen"
	"github.com/viant/kproc/service/messaging"
)

// Config for the in-memory queue.
type Config struct {
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay"`
	DeadLetter  bool          `json:"deadLetter" yaml:"deadLetter"`
	QueueBuffer int           `json:"queueBuffer" yaml:"queueBuffer"`
}

// DefaultConfig returns the standard queue configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 256,
	}
}

// Message is a message held by Queue.
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	retryCount int
	createdAt  time.Time
	lastErr    error
	mu         sync.Mutex
	processed  bool
}

func (m *Message[T]) ID() string { return m.id }

func (m *Message[T]) T() *T { return &m.payload }

// CreatedAt returns when the message was first published.
func (m *Message[T]) CreatedAt() time.Time { return m.createdAt }

// Retries returns how many times the message was redelivered.
func (m *Message[T]) Retries() int { return m.retryCount }

// Err returns the error recorded by the last Nack.
func (m *Message[T]) Err() error { return m.lastErr }

func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return messaging.ErrProcessed
	}
	m.processed = true
	return nil
}

// Nack redelivers the message after RetryDelay until MaxRetries is
// exhausted, then moves it to the dead letter list when enabled.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return messaging.ErrProcessed
	}
	m.processed = true
	m.retryCount++
	m.lastErr = err

	q := m.queue
	if m.retryCount <= q.config.MaxRetries {
		retry := &Message[T]{
			id:         m.id,
			payload:    m.payload,
			queue:      q,
			retryCount: m.retryCount,
			createdAt:  m.createdAt,
			lastErr:    err,
		}
		time.AfterFunc(q.config.RetryDelay, func() {
			if q.TryPublishMessage(retry) != nil {
				q.deadLetter(retry)
			}
		})
		return nil
	}
	if q.config.DeadLetter {
		q.deadLetter(m)
	}
	return nil
}

// Queue is an in-memory messaging.Queue backed by a buffered channel.
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
	dropped  atomic.Int64
	dlqMu    sync.Mutex
	dlq      []*Message[T]
}

// NewQueue creates an in-memory queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

func (q *Queue[T]) newMessage(t *T) *Message[T] {
	return &Message[T]{
		id:        idgen.New(),
		payload:   *t,
		queue:     q,
		createdAt: clock.Now(),
	}
}

func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.messages <- q.newMessage(t):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish never blocks; a full queue counts the message as dropped.
func (q *Queue[T]) TryPublish(t *T) error {
	return q.TryPublishMessage(q.newMessage(t))
}

// TryPublishMessage enqueues an existing message without blocking.
func (q *Queue[T]) TryPublishMessage(msg *Message[T]) error {
	select {
	case q.messages <- msg:
		return nil
	default:
		q.dropped.Add(1)
		return messaging.ErrFull
	}
}

func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue[T]) deadLetter(msg *Message[T]) {
	q.dlqMu.Lock()
	q.dlq = append(q.dlq, msg)
	q.dlqMu.Unlock()
}

// Size returns the number of queued messages.
func (q *Queue[T]) Size() int { return len(q.messages) }

// Dropped returns how many messages TryPublish rejected.
func (q *Queue[T]) Dropped() int64 { return q.dropped.Load() }

// DeadLetters returns the payloads that exhausted their retries.
func (q *Queue[T]) DeadLetters() []T {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	ret := make([]T, len(q.dlq))
	for i, msg := range q.dlq {
		ret[i] = msg.payload
	}
	return ret
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
