package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/nodeflow/internal/clock"
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/service/dao/store"
	"github.com/viant/nodeflow/service/event"
)

// ErrNodeNotFound is returned when a node id is not registered.
var ErrNodeNotFound = errors.New("node not found")

type (
	// SyncCallback mirrors committed node state to an external consumer.
	SyncCallback func(ctx context.Context, id string, node *graph.NodeData)

	// TriggerFunc starts processing of a node.
	TriggerFunc func(ctx context.Context, id string) error

	// MutateFunc derives a new node state from a private clone of the current one.
	MutateFunc func(node *graph.NodeData) error

	entry struct {
		ID       string
		Node     *graph.NodeData
		Callback SyncCallback
	}
)

// Service stores node state as immutable snapshots. Every write builds a
// new NodeData and swaps it in under the write lock.
type Service struct {
	mu      sync.Mutex
	entries *store.MemoryStore[string, entry]
	bus     *event.Bus
	trigger TriggerFunc
}

// Option customises a registry Service.
type Option func(*Service)

// WithEventBus sets the bus receiving NODE_DATA_UPDATED events.
func WithEventBus(bus *event.Bus) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

// WithTrigger sets the function used by Update when processing is requested.
func WithTrigger(trigger TriggerFunc) Option {
	return func(s *Service) {
		s.trigger = trigger
	}
}

// New creates a registry.
func New(opts ...Option) *Service {
	ret := &Service{
		entries: store.NewMemoryStore[string, entry](func(e *entry) string { return e.ID }),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// SetTrigger replaces the processing trigger.
func (s *Service) SetTrigger(trigger TriggerFunc) {
	s.mu.Lock()
	s.trigger = trigger
	s.mu.Unlock()
}

// Register stores data under id, overwriting any previous registration.
func (s *Service) Register(ctx context.Context, id string, data *graph.NodeData, callback SyncCallback) (*graph.NodeData, error) {
	if id == "" {
		return nil, fmt.Errorf("node id was empty")
	}
	node := graph.Normalize(data.Clone())
	if node.Plugin != nil && node.Plugin.LastUpdated.IsZero() {
		node.Plugin.LastUpdated = clock.Now()
	}
	s.mu.Lock()
	err := s.entries.Save(ctx, &entry{ID: id, Node: node, Callback: callback})
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.bus.Emit(ctx, event.NodeDataUpdated, id, event.DataUpdated{Reason: event.ReasonRegistered, Node: node})
	return node, nil
}

// RegisterRaw migrates a legacy or sectioned map and registers the result.
func (s *Service) RegisterRaw(ctx context.Context, id string, raw map[string]interface{}, callback SyncCallback) (*graph.NodeData, error) {
	node, err := graph.Migrate(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate node %v: %w", id, err)
	}
	return s.Register(ctx, id, node, callback)
}

// Unregister removes a node and its callback.
func (s *Service) Unregister(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, _ := s.entries.Load(ctx, id)
	if prev == nil {
		return fmt.Errorf("%w: %v", ErrNodeNotFound, id)
	}
	return s.entries.Delete(ctx, id)
}

// Get returns the current snapshot or nil. Callers must not modify it.
func (s *Service) Get(id string) *graph.NodeData {
	e, _ := s.entries.Load(context.Background(), id)
	if e == nil {
		return nil
	}
	return e.Node
}

// Has reports whether id is registered.
func (s *Service) Has(id string) bool {
	return s.Get(id) != nil
}

// IDs returns registered node ids in sorted order.
func (s *Service) IDs() []string {
	return s.entries.Keys()
}

// Len returns the number of registered nodes.
func (s *Service) Len() int {
	return s.entries.Len()
}

// Update merges patch into the node. Output data that cannot be encoded
// as JSON is rejected with a VALIDATION_ERROR before anything is written.
func (s *Service) Update(ctx context.Context, id string, patch *graph.Patch, trigger bool) (*graph.NodeData, error) {
	if err := patch.Validate(); err != nil {
		return nil, graph.NewNodeError(graph.CodeValidation, id, err, clock.Now())
	}
	node, err := s.Mutate(ctx, id, func(node *graph.NodeData) error {
		*node = *patch.Apply(node)
		return nil
	})
	if err != nil || !trigger {
		return node, err
	}
	s.mu.Lock()
	fn := s.trigger
	s.mu.Unlock()
	if fn == nil {
		return node, nil
	}
	return node, fn(ctx, id)
}

// Mutate applies fn to a clone of the node and commits the result. The
// sync callback runs and NODE_DATA_UPDATED is emitted after the commit.
func (s *Service) Mutate(ctx context.Context, id string, fn MutateFunc) (*graph.NodeData, error) {
	updated, err := s.commit(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if updated.Callback != nil {
		updated.Callback(ctx, id, updated.Node)
	}
	s.bus.Emit(ctx, event.NodeDataUpdated, id, event.DataUpdated{Reason: event.ReasonUpdated, Node: updated.Node})
	return updated.Node, nil
}

// commit applies fn to a copy of the node and stores it. The lock is
// released even when fn panics.
func (s *Service) commit(ctx context.Context, id string, fn MutateFunc) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, _ := s.entries.Load(ctx, id)
	if current == nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeNotFound, id)
	}
	next := current.Node.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	graph.Normalize(next)
	updated := &entry{ID: id, Node: next, Callback: current.Callback}
	if err := s.entries.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Reset drops every node.
func (s *Service) Reset() {
	s.mu.Lock()
	s.entries.Reset()
	s.mu.Unlock()
}
