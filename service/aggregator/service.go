package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/viant/nodeflow/internal/clock"
	"github.com/viant/nodeflow/internal/logging"
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/service/registry"
)

// HandlerConfigKey names the plugin config entry holding a custom handler name.
const HandlerConfigKey = "aggregationHandler"

var (
	ErrUnknownStrategy = errors.New("unknown aggregation strategy")
	ErrHandlerNotFound = errors.New("aggregation handler not found")
)

// Result is the outcome of one aggregation run.
type Result struct {
	Strategy    string
	Data        interface{}
	Connections []*graph.Connection
	// Recovered holds the error swallowed by a non custom strategy.
	Recovered *graph.NodeError
}

// Service refreshes connection snapshots and runs aggregation strategies.
type Service struct {
	registry        *registry.Service
	handlers        *HandlerRegistry
	defaultStrategy string
	logger          *slog.Logger
}

// Option customises an aggregator Service.
type Option func(*Service)

func WithHandlers(handlers *HandlerRegistry) Option {
	return func(s *Service) {
		s.handlers = handlers
	}
}

func WithDefaultStrategy(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultStrategy = name
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates an aggregator over registry.
func New(registry *registry.Service, opts ...Option) *Service {
	ret := &Service{registry: registry, defaultStrategy: StrategyMerge}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.handlers == nil {
		ret.handlers = NewHandlerRegistry()
	}
	if ret.logger == nil {
		ret.logger = logging.Discard()
	}
	return ret
}

// Handlers returns the custom handler table.
func (s *Service) Handlers() *HandlerRegistry {
	return s.handlers
}

// Refresh pulls the current output of every source node into the node's
// input connections and returns them in insertion order. Connections whose
// source is no longer registered are dropped.
func (s *Service) Refresh(ctx context.Context, nodeID string) ([]*graph.Connection, error) {
	var ret []*graph.Connection
	_, err := s.registry.Mutate(ctx, nodeID, func(node *graph.NodeData) error {
		now := clock.Now()
		ret = make([]*graph.Connection, 0, len(node.Input.Connections))
		for id, conn := range node.Input.Connections {
			source := s.registry.Get(conn.SourceNodeID)
			if source == nil {
				delete(node.Input.Connections, id)
				continue
			}
			conn.Data = source.Output.Data
			conn.Meta.DataType = graph.DataTypeOf(conn.Data)
			conn.Meta.IsActive = true
			if conn.Meta.LastProcessed == nil {
				lastProcessed := now
				conn.Meta.LastProcessed = &lastProcessed
			}
			ret = append(ret, conn.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].Meta.Sequence < ret[j].Meta.Sequence
	})
	return ret, nil
}

// Aggregate refreshes the node's connections and combines them with the
// configured strategy. Failures of built-in strategies are logged and
// recovered with an empty object; custom handler failures are returned.
func (s *Service) Aggregate(ctx context.Context, nodeID string) (*Result, error) {
	connections, err := s.Refresh(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	node := s.registry.Get(nodeID)
	if node == nil {
		return nil, fmt.Errorf("%w: %v", registry.ErrNodeNotFound, nodeID)
	}
	result := &Result{Strategy: s.strategyName(node), Connections: connections}
	if result.Strategy == StrategyCustom {
		result.Data, err = s.custom(ctx, node, connections)
		if err != nil {
			return nil, graph.AsNodeError(err, graph.CodeAggregation, nodeID, clock.Now()).
				WithDetail("strategy", result.Strategy)
		}
	} else {
		result.Data, err = runStrategy(result.Strategy, connections)
		if err != nil {
			result.Recovered = graph.NewNodeError(graph.CodeAggregation, nodeID, err, clock.Now()).
				WithDetail("strategy", result.Strategy)
			logging.FromContext(ctx, s.logger).Error("aggregation failed, continuing with empty input",
				"node", nodeID, "strategy", result.Strategy, "error", err)
			result.Data = map[string]interface{}{}
		}
	}

	processed := graph.Processed{
		Strategy: result.Strategy,
		Data:     result.Data,
		Meta:     graph.ProcessedMeta{ConnectionCount: len(connections), Timestamp: clock.Now()},
	}
	if _, err = s.registry.Update(ctx, nodeID, &graph.Patch{Input: &graph.InputPatch{Processed: &processed}}, false); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) strategyName(node *graph.NodeData) string {
	if node.Input.Config.Strategy != "" {
		return node.Input.Config.Strategy
	}
	return s.defaultStrategy
}

func (s *Service) handlerName(node *graph.NodeData) string {
	if node.Input.Config.Handler != "" {
		return node.Input.Config.Handler
	}
	if node.Plugin != nil {
		if name, ok := node.Plugin.Config[HandlerConfigKey].(string); ok {
			return name
		}
	}
	return ""
}

func (s *Service) custom(ctx context.Context, node *graph.NodeData, connections []*graph.Connection) (ret interface{}, err error) {
	name := s.handlerName(node)
	handler, ok := s.handlers.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregation handler %v panicked: %v", name, r)
		}
	}()
	return handler(ctx, connections, node)
}

func runStrategy(name string, connections []*graph.Connection) (ret interface{}, err error) {
	strategy, ok := Builtin(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %v panicked: %v", name, r)
		}
	}()
	return strategy(connections)
}
