package dao

import (
	"context"
	"errors"
)

// ErrNilEntity is returned when a nil entity is saved.
var ErrNilEntity = errors.New("dao: nil entity")

// Service is the storage contract shared by the node registry and the
// connection table. Load returns nil without error for a missing key.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error
	Load(ctx context.Context, id K) (*T, error)
	Delete(ctx context.Context, id K) error
	// List returns entities accepted for parameters, in no particular order.
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
	Len() int
	Reset()
}
