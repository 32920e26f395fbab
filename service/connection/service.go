package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/viant/nodeflow/internal/clock"
	"github.com/viant/nodeflow/internal/logging"
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/service/dao"
	"github.com/viant/nodeflow/service/dao/criteria"
	"github.com/viant/nodeflow/service/dao/store"
	"github.com/viant/nodeflow/service/event"
	"github.com/viant/nodeflow/service/registry"
)

// ErrConnectionNotFound is returned when no connection matches a removal request.
var ErrConnectionNotFound = errors.New("connection not found")

// EdgeCollaborator keeps an external graph view in step with evictions.
type EdgeCollaborator interface {
	RemoveEdge(ctx context.Context, edgeRef string) error
}

// EdgeRemoverFunc adapts a function to EdgeCollaborator.
type EdgeRemoverFunc func(ctx context.Context, edgeRef string) error

func (f EdgeRemoverFunc) RemoveEdge(ctx context.Context, edgeRef string) error {
	return f(ctx, edgeRef)
}

// Service maintains the connection table and each target's input.connections.
type Service struct {
	mu           sync.Mutex
	table        *store.MemoryStore[string, graph.Connection]
	seq          uint64
	registry     *registry.Service
	collaborator EdgeCollaborator
	bus          *event.Bus
	logger       *slog.Logger
}

// Option customises a connection Service.
type Option func(*Service)

func WithEdgeCollaborator(collaborator EdgeCollaborator) Option {
	return func(s *Service) {
		s.collaborator = collaborator
	}
}

func WithEventBus(bus *event.Bus) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a connection manager over registry.
func New(registry *registry.Service, opts ...Option) *Service {
	ret := &Service{
		registry: registry,
		table: store.NewMemoryStore[string, graph.Connection](
			func(c *graph.Connection) string { return c.ID },
			store.WithFilter[string, graph.Connection](criteria.MatchConnection),
		),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = logging.Discard()
	}
	return ret
}

// Add connects source to target. A target that does not allow multiple
// connections loses every existing connection first; each evicted record
// is reported to the edge collaborator and emitted as CONNECTION_REMOVED.
func (s *Service) Add(ctx context.Context, source, target, sourceHandle, targetHandle, edgeRef string) (*graph.Connection, error) {
	if !s.registry.Has(source) {
		return nil, fmt.Errorf("failed to connect source %v: %w", source, registry.ErrNodeNotFound)
	}
	targetNode := s.registry.Get(target)
	if targetNode == nil {
		return nil, fmt.Errorf("failed to connect target %v: %w", target, registry.ErrNodeNotFound)
	}

	s.mu.Lock()
	conn := graph.NewConnection(source, target, sourceHandle, targetHandle, edgeRef, clock.Now())
	var evicted []*graph.Connection
	if !targetNode.Input.Config.AllowMultipleConnections {
		evicted = s.table.DeleteWhere(func(c *graph.Connection) bool {
			return c.TargetNodeID == target && c.ID != conn.ID
		})
	}
	if existing, _ := s.table.Load(ctx, conn.ID); existing != nil {
		// same composite key: keep the original insertion position
		conn.Meta.Sequence = existing.Meta.Sequence
	} else {
		s.seq++
		conn.Meta.Sequence = s.seq
	}
	err := s.table.Save(ctx, conn)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sortBySequence(evicted)

	for _, prev := range evicted {
		if prev.EdgeRef == "" || prev.EdgeRef == edgeRef || s.collaborator == nil {
			continue
		}
		if err := s.collaborator.RemoveEdge(ctx, prev.EdgeRef); err != nil {
			s.logger.Warn("edge collaborator failed to remove edge", "edgeRef", prev.EdgeRef, "connection", prev.ID, "error", err)
		}
	}
	if _, err = s.registry.Mutate(ctx, target, func(node *graph.NodeData) error {
		for _, prev := range evicted {
			delete(node.Input.Connections, prev.ID)
		}
		node.Input.Connections[conn.ID] = conn.Clone()
		return nil
	}); err != nil {
		return nil, err
	}
	for _, prev := range evicted {
		s.bus.Emit(ctx, event.ConnectionRemoved, target, event.ConnectionChange{Connection: prev})
	}
	s.bus.Emit(ctx, event.ConnectionAdded, target, event.ConnectionChange{Connection: conn.Clone(), Replaced: len(evicted) > 0})
	s.logger.Debug("connection added", "connection", conn.ID, "replaced", len(evicted))
	return conn.Clone(), nil
}

// Remove deletes the connection identified by its endpoints.
func (s *Service) Remove(ctx context.Context, source, target, sourceHandle, targetHandle string) error {
	id := graph.ConnectionID(source, target, sourceHandle, targetHandle)
	removed := s.deleteWhere(func(c *graph.Connection) bool { return c.ID == id })
	if len(removed) == 0 {
		return fmt.Errorf("%w: %v", ErrConnectionNotFound, id)
	}
	return s.detach(ctx, removed, "")
}

// RemoveByEdgeRef deletes every connection created for edgeRef.
func (s *Service) RemoveByEdgeRef(ctx context.Context, edgeRef string) error {
	if edgeRef == "" {
		return fmt.Errorf("%w: empty edge ref", ErrConnectionNotFound)
	}
	removed := s.deleteWhere(func(c *graph.Connection) bool { return c.EdgeRef == edgeRef })
	if len(removed) == 0 {
		return fmt.Errorf("%w: edge %v", ErrConnectionNotFound, edgeRef)
	}
	return s.detach(ctx, removed, "")
}

// RemoveNode deletes every connection where id is the source or the target
// and prunes the input.connections of surviving targets.
func (s *Service) RemoveNode(ctx context.Context, id string) ([]*graph.Connection, error) {
	removed := s.deleteWhere(func(c *graph.Connection) bool {
		return c.SourceNodeID == id || c.TargetNodeID == id
	})
	return removed, s.detach(ctx, removed, id)
}

func (s *Service) deleteWhere(predicate func(*graph.Connection) bool) []*graph.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.table.DeleteWhere(predicate)
	sortBySequence(removed)
	return removed
}

// detach removes connection records from their targets, skipping the
// node being unregistered.
func (s *Service) detach(ctx context.Context, removed []*graph.Connection, skipNode string) error {
	byTarget := map[string][]*graph.Connection{}
	var targets []string
	for _, conn := range removed {
		if conn.TargetNodeID == skipNode {
			continue
		}
		if _, ok := byTarget[conn.TargetNodeID]; !ok {
			targets = append(targets, conn.TargetNodeID)
		}
		byTarget[conn.TargetNodeID] = append(byTarget[conn.TargetNodeID], conn)
	}
	for _, target := range targets {
		if !s.registry.Has(target) {
			continue
		}
		_, err := s.registry.Mutate(ctx, target, func(node *graph.NodeData) error {
			for _, conn := range byTarget[target] {
				delete(node.Input.Connections, conn.ID)
			}
			return nil
		})
		if err != nil && !errors.Is(err, registry.ErrNodeNotFound) {
			return err
		}
	}
	for _, conn := range removed {
		s.bus.Emit(ctx, event.ConnectionRemoved, conn.TargetNodeID, event.ConnectionChange{Connection: conn})
	}
	return nil
}

// Get returns a copy of the connection with id, or nil.
func (s *Service) Get(id string) *graph.Connection {
	conn, _ := s.table.Load(context.Background(), id)
	return conn.Clone()
}

// List returns copies of the connections matching parameters in insertion order.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*graph.Connection, error) {
	records, err := s.table.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	ret := make([]*graph.Connection, 0, len(records))
	for _, record := range records {
		ret = append(ret, record.Clone())
	}
	sortBySequence(ret)
	return ret, nil
}

// Upstream returns the distinct source ids feeding id, in insertion order.
func (s *Service) Upstream(id string) []string {
	conns, _ := s.List(context.Background(), dao.NewParameter(dao.ParamTarget, id))
	return distinct(conns, func(c *graph.Connection) string { return c.SourceNodeID })
}

// Downstream returns the distinct target ids fed by id, in insertion order.
func (s *Service) Downstream(id string) []string {
	conns, _ := s.List(context.Background(), dao.NewParameter(dao.ParamSource, id))
	return distinct(conns, func(c *graph.Connection) string { return c.TargetNodeID })
}

// Len returns the number of connections.
func (s *Service) Len() int {
	return s.table.Len()
}

// Reset drops every connection record.
func (s *Service) Reset() {
	s.mu.Lock()
	s.table.Reset()
	s.seq = 0
	s.mu.Unlock()
}

func distinct(conns []*graph.Connection, key func(*graph.Connection) string) []string {
	seen := map[string]bool{}
	var ret []string
	for _, conn := range conns {
		k := key(conn)
		if seen[k] {
			continue
		}
		seen[k] = true
		ret = append(ret, k)
	}
	return ret
}

func sortBySequence(conns []*graph.Connection) {
	sort.SliceStable(conns, func(i, j int) bool {
		return conns[i].Meta.Sequence < conns[j].Meta.Sequence
	})
}
