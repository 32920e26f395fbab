package store

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/nodeflow/service/dao"
)

// MemoryStore is a generic in-memory dao.Service keyed by keySelector.
// Records are returned by pointer; callers treat them as immutable and
// Save a replacement instead of mutating in place.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	keySelector func(*T) K
	filter      func(*T, []*dao.Parameter) bool
}

// Option customises a MemoryStore.
type Option[K comparable, T any] func(*MemoryStore[K, T])

// WithFilter sets the predicate List applies to parameters.
func WithFilter[K comparable, T any](filter func(*T, []*dao.Parameter) bool) Option[K, T] {
	return func(s *MemoryStore[K, T]) {
		s.filter = filter
	}
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, opts ...Option[K, T]) *MemoryStore[K, T] {
	ret := &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = v
	return nil
}

// Load returns a record by key, or nil when absent.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[key], nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// DeleteWhere removes every record matching predicate and returns them.
func (s *MemoryStore[K, T]) DeleteWhere(predicate func(*T) bool) []*T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*T
	for key, v := range s.records {
		if predicate(v) {
			removed = append(removed, v)
			delete(s.records, key)
		}
	}
	return removed
}

// List returns records accepted by the configured filter.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		if s.filter != nil && !s.filter(v, parameters) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Len returns the number of records.
func (s *MemoryStore[K, T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reset removes all records.
func (s *MemoryStore[K, T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[K]*T)
}

// Keys returns sorted keys when K is a string, insertion-agnostic otherwise.
func (s *MemoryStore[K, T]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]K, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aok := any(keys[i]).(string)
		b, bok := any(keys[j]).(string)
		return aok && bok && a < b
	})
	return keys
}

var _ dao.Service[string, struct{}] = (*MemoryStore[string, struct{}])(nil)
