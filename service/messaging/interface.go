package messaging

import (
	"context"
	"errors"
)

// ErrEmpty is returned by Consume when no message is pending.
var ErrEmpty = errors.New("queue is empty")

// Queue holds deferred work such as batched directives until it is drained.
type Queue[T any] interface {
	Publish(ctx context.Context, t *T) error
	// Consume returns the next pending message, or ErrEmpty.
	Consume(ctx context.Context) (Message[T], error)
	Size() int
	// DLQSize returns the number of messages that exhausted their retries.
	DLQSize() int
}

// Message is a consumed queue entry. Exactly one of Ack or Nack settles it.
type Message[T any] interface {
	ID() string
	T() *T
	// Err returns the cause recorded by the last Nack.
	Err() error
	Ack() error
	Nack(err error) error
}
