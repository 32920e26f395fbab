package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/viant/nodeflow/internal/clock"
	"github.com/viant/nodeflow/internal/idgen"
	"github.com/viant/nodeflow/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries int
	DeadLetter bool
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries: 0,
		DeadLetter: true,
	}
}

// Less orders pending payloads; it reports whether a should be consumed before b.
type Less[T any] func(a, b *T) bool

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	seq        uint64
	retryCount int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
	err        error
}

// ID returns the message id
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Err returns the last Nack error
func (m *Message[T]) Err() error {
	return m.err
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	return nil
}

// Nack records a processing failure. The message is requeued while under
// the retry limit, otherwise it moves to the dead letter list.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	if m.processed {
		m.mu.Unlock()
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	m.retryCount++
	m.err = err
	m.mu.Unlock()

	if m.retryCount <= m.queue.config.MaxRetries {
		m.queue.push(&Message[T]{
			id:         m.id,
			payload:    m.payload,
			queue:      m.queue,
			seq:        m.seq,
			retryCount: m.retryCount,
			createdAt:  clock.Now(),
		})
		return nil
	}
	if m.queue.config.DeadLetter {
		m.queue.mu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.mu.Unlock()
	}
	return nil
}

// Queue is a synchronous in-memory messaging.Queue. Pending messages are
// consumed in Less order, ties broken by publication order.
type Queue[T any] struct {
	mu       sync.Mutex
	messages []*Message[T]
	dlq      []*Message[T]
	seq      uint64
	less     Less[T]
	config   Config
}

// Option customises a Queue
type Option[T any] func(q *Queue[T])

// WithLess sets the consumption order
func WithLess[T any](less Less[T]) Option[T] {
	return func(q *Queue[T]) {
		q.less = less
	}
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config, opts ...Option[T]) *Queue[T] {
	ret := &Queue[T]{config: config}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("payload was nil")
	}
	q.mu.Lock()
	q.seq++
	seq := q.seq
	q.mu.Unlock()
	q.push(&Message[T]{
		id:        idgen.New(),
		payload:   *t,
		queue:     q,
		seq:       seq,
		createdAt: clock.Now(),
	})
	return nil
}

func (q *Queue[T]) push(msg *Message[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	sort.SliceStable(q.messages, func(i, j int) bool {
		a, b := q.messages[i], q.messages[j]
		if q.less != nil {
			if q.less(&a.payload, &b.payload) {
				return true
			}
			if q.less(&b.payload, &a.payload) {
				return false
			}
		}
		return a.seq < b.seq
	})
}

// Consume retrieves the next pending message without blocking
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return nil, messaging.ErrEmpty
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	return msg, nil
}

// Drain removes and returns every pending payload in consumption order
func (q *Queue[T]) Drain() []*Message[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	ret := q.messages
	q.messages = nil
	return ret
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dlq)
}

// DeadLetters returns a copy of the dead letter messages
func (q *Queue[T]) DeadLetters() []*Message[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Message[T]{}, q.dlq...)
}

// PurgeDeadLetters removes dead letters whose payload matches predicate and
// returns how many were removed.
func (q *Queue[T]) PurgeDeadLetters(predicate func(t *T) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.dlq[:0]
	for _, msg := range q.dlq {
		if !predicate(&msg.payload) {
			kept = append(kept, msg)
		}
	}
	removed := len(q.dlq) - len(kept)
	for i := len(kept); i < len(q.dlq); i++ {
		q.dlq[i] = nil
	}
	q.dlq = kept
	return removed
}

// Reset drops pending messages and dead letters.
func (q *Queue[T]) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = nil
	q.dlq = nil
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
