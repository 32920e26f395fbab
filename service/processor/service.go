package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/viant/nodeflow/internal/clock"
	"github.com/viant/nodeflow/internal/logging"
	"github.com/viant/nodeflow/metrics"
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/policy"
	"github.com/viant/nodeflow/progress"
	"github.com/viant/nodeflow/service/aggregator"
	"github.com/viant/nodeflow/service/connection"
	"github.com/viant/nodeflow/service/directive"
	"github.com/viant/nodeflow/service/event"
	"github.com/viant/nodeflow/service/plugin"
	"github.com/viant/nodeflow/service/registry"
	"github.com/viant/nodeflow/tracing"
	"golang.org/x/sync/errgroup"
)

// Processing stages reported in NodeError details.
const (
	StageAggregate = "aggregate"
	StagePlugin    = "plugin"
	StageCommit    = "commit"
)

// Config represents processor configuration
type Config struct {
	// MaxConcurrency caps the downstream nodes processed at once by one
	// fan out; zero means unlimited.
	MaxConcurrency int `json:"maxConcurrency,omitempty" yaml:"maxConcurrency,omitempty" validate:"min=0"`
}

// DefaultConfig returns the default processor configuration
func DefaultConfig() Config {
	return Config{}
}

type waveKey struct{}

// Service runs nodes through their processing lifecycle.
type Service struct {
	config      Config
	registry    *registry.Service
	connections *connection.Service
	aggregator  *aggregator.Service
	bridge      *plugin.Bridge
	directives  *directive.Service

	bus      *event.Bus
	policy   *policy.Policy
	metrics  *metrics.Metrics
	progress *progress.Progress
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a processor over the engine components.
func New(registry *registry.Service, connections *connection.Service, aggregator *aggregator.Service,
	bridge *plugin.Bridge, directives *directive.Service, options ...Option) *Service {
	s := &Service{
		config:      DefaultConfig(),
		registry:    registry,
		connections: connections,
		aggregator:  aggregator,
		bridge:      bridge,
		directives:  directives,
		inFlight:    map[string]struct{}{},
	}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// ProcessNode runs the node and, when the execute flag allows it, every
// node downstream of it. A call for a node that is already processing is
// dropped and returns nil. The returned error is the node's own failure;
// downstream failures are recorded on the downstream nodes only.
func (s *Service) ProcessNode(ctx context.Context, id string) error {
	node := s.registry.Get(id)
	if node == nil {
		return fmt.Errorf("%w: %v", registry.ErrNodeNotFound, id)
	}
	logger := logging.FromContext(ctx, s.logger).With("node", id)
	if node.IsInput() && node.HasOutput() {
		logger.Debug("input node holds data, skipping")
		s.metrics.Skipped(metrics.StatusSkipped)
		s.track(ctx, progress.Delta{Total: 1, Skipped: 1})
		return nil
	}
	if !s.acquire(id) {
		logger.Debug("node is already processing, request dropped")
		s.metrics.Skipped(metrics.StatusBusy)
		return nil
	}
	defer s.release(id)

	wave := ctx.Value(waveKey{}) == nil
	if wave {
		ctx = context.WithValue(ctx, waveKey{}, id)
	}
	err := s.run(ctx, id, logger)
	if err == nil {
		s.propagate(ctx, id, logger)
	}
	if wave {
		s.flush(ctx, logger)
	}
	return err
}

// InFlight reports whether id is currently processing.
func (s *Service) InFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

// Forget drops the in-flight marker of id.
func (s *Service) Forget(id string) {
	s.release(id)
}

func (s *Service) run(ctx context.Context, id string, logger *slog.Logger) (err error) {
	started := clock.Now()
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("processor.ProcessNode %s", id))
	span.WithAttributes(map[string]string{"node.id": id})
	defer func() { tracing.EndSpan(span, err) }()

	s.metrics.Started()
	s.track(ctx, progress.Delta{Total: 1, Running: 1})
	node, err := s.registry.Mutate(ctx, id, func(node *graph.NodeData) error {
		node.Output.Meta.Status = graph.StatusProcessing
		node.Error.Clear()
		return nil
	})
	if err != nil {
		s.metrics.Finished("", metrics.StatusError, clock.Since(started))
		s.track(ctx, progress.Delta{Running: -1, Failed: 1})
		return err
	}
	pluginName := ""
	if node.HasPlugin() {
		pluginName = node.Plugin.Name
		span.WithAttributes(map[string]string{"plugin.name": pluginName})
	}
	s.bus.Emit(ctx, event.NodeProcessing, id, event.Processing{StartedAt: started})

	committed, stage, err := s.compute(ctx, id, node.HasPlugin(), started)
	if err != nil {
		nodeErr := s.fail(ctx, id, stage, err, logger)
		s.metrics.Finished(pluginName, metrics.StatusError, clock.Since(started))
		s.track(ctx, progress.Delta{Running: -1, Failed: 1})
		logger.Error("node processing failed", "stage", stage, "code", nodeErr.Code, "error", nodeErr.Message)
		return nodeErr
	}

	s.applyDirectives(ctx, id, committed.Output.Directives, logger)
	elapsed := committed.Output.Meta.ProcessingTime
	s.bus.Emit(ctx, event.NodeProcessed, id, event.Processed{Success: true, Data: committed.Output.Data, ProcessingTime: elapsed})
	s.metrics.Finished(pluginName, metrics.StatusSuccess, elapsed)
	s.track(ctx, progress.Delta{Running: -1, Completed: 1})
	span.WithInt("node.connections", len(committed.Input.Connections))
	logger.Debug("node processed", "elapsed", elapsed)
	return nil
}

// compute aggregates the inputs, runs the plugin and commits the output.
// It returns the stage that failed along with the error.
func (s *Service) compute(ctx context.Context, id string, hasPlugin bool, started time.Time) (*graph.NodeData, string, error) {
	aggregated, err := s.aggregator.Aggregate(ctx, id)
	if err != nil {
		return nil, StageAggregate, err
	}
	s.metrics.Aggregated(aggregated.Strategy)

	data := aggregated.Data
	var directives map[string][]*graph.Directive
	if hasPlugin {
		current := s.registry.Get(id)
		if current == nil {
			return nil, StagePlugin, fmt.Errorf("%w: %v", registry.ErrNodeNotFound, id)
		}
		result, err := s.bridge.Execute(ctx, id, current, aggregated.Data, aggregated.Connections)
		if err != nil {
			return nil, StagePlugin, err
		}
		data = result.Data
		directives = result.Directives
	}

	now := clock.Now()
	// A plugin run replaces the directive map, so directives of an earlier
	// run are never applied again.
	patch := &graph.Patch{Output: &graph.OutputPatch{
		SetData:         true,
		ClearDirectives: hasPlugin,
		Data:            data,
		Meta: &graph.OutputMeta{
			Status:         graph.StatusSuccess,
			Timestamp:      now,
			ProcessingTime: now.Sub(started),
		},
		Directives: directives,
	}}
	committed, err := s.registry.Update(ctx, id, patch, false)
	if err != nil {
		return nil, StageCommit, err
	}
	return committed, "", nil
}

// fail records cause on the node, flags it as failed and emits NODE_ERROR.
func (s *Service) fail(ctx context.Context, id, stage string, cause error, logger *slog.Logger) *graph.NodeError {
	nodeErr := graph.AsNodeError(cause, graph.CodeProcessing, id, clock.Now()).WithDetail("stage", stage)
	_, err := s.registry.Mutate(ctx, id, func(node *graph.NodeData) error {
		node.Error.AddError(nodeErr)
		node.Output.Meta.Status = graph.StatusError
		node.Output.Meta.Timestamp = nodeErr.Timestamp
		return nil
	})
	if err != nil {
		logger.Warn("failed to record node error", "error", err)
	}
	s.bus.Emit(ctx, event.NodeError, id, event.Failure{Error: nodeErr})
	return nodeErr
}

func (s *Service) applyDirectives(ctx context.Context, id string, directives map[string][]*graph.Directive, logger *slog.Logger) {
	total := 0
	for _, list := range directives {
		total += len(list)
	}
	if total == 0 {
		return
	}
	err := s.directives.ApplyAll(ctx, id, directives)
	failed := countErrors(err)
	s.metrics.Directive(metrics.DirectiveAccepted, total-failed)
	if failed == 0 {
		return
	}
	s.metrics.Directive(metrics.DirectiveFailed, failed)
	s.track(ctx, progress.Delta{Directives: failed})
	logger.Warn("directives failed", "count", failed, "error", err)
}

// propagate processes every downstream node concurrently and waits for
// all of them, or emits EXECUTION_PAUSED when the execute flag is off.
func (s *Service) propagate(ctx context.Context, id string, logger *slog.Logger) {
	downstream := s.connections.Downstream(id)
	if !policy.Resolve(ctx, s.policy).Execute() {
		logger.Info("execution paused, propagation skipped", "skipped", downstream)
		s.metrics.Paused()
		s.track(ctx, progress.Delta{Paused: 1})
		s.bus.Emit(ctx, event.ExecutionPaused, id, event.Paused{Skipped: downstream})
		return
	}
	if len(downstream) == 0 {
		return
	}
	group := &errgroup.Group{}
	if s.config.MaxConcurrency > 0 {
		group.SetLimit(s.config.MaxConcurrency)
	}
	for _, target := range downstream {
		group.Go(func() error {
			return s.ProcessNode(ctx, target)
		})
	}
	if err := group.Wait(); err != nil {
		logger.Debug("downstream processing failed", "error", err)
	}
}

// flush applies the directives deferred during the wave.
func (s *Service) flush(ctx context.Context, logger *slog.Logger) {
	if s.directives.Pending() == 0 {
		return
	}
	err := s.directives.Flush(ctx)
	failed := countErrors(err)
	if failed == 0 {
		return
	}
	s.metrics.Directive(metrics.DirectiveFailed, failed)
	s.track(ctx, progress.Delta{Directives: failed})
	logger.Warn("deferred directives failed", "count", failed, "error", err)
}

func (s *Service) track(ctx context.Context, delta progress.Delta) {
	if tracker, ok := progress.FromContext(ctx); ok {
		tracker.Update(delta)
		return
	}
	s.progress.Update(delta)
}

func (s *Service) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[id]; ok {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func countErrors(err error) int {
	if err == nil {
		return 0
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
