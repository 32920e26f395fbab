package nodeflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/nodeflow/internal/logging"
	"github.com/viant/nodeflow/metrics"
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/policy"
	"github.com/viant/nodeflow/progress"
	"github.com/viant/nodeflow/service/aggregator"
	"github.com/viant/nodeflow/service/connection"
	"github.com/viant/nodeflow/service/dao"
	"github.com/viant/nodeflow/service/dao/definition"
	"github.com/viant/nodeflow/service/directive"
	"github.com/viant/nodeflow/service/event"
	"github.com/viant/nodeflow/service/meta"
	"github.com/viant/nodeflow/service/plugin"
	"github.com/viant/nodeflow/service/processor"
	"github.com/viant/nodeflow/service/registry"
	"github.com/viant/nodeflow/tracing"
)

// Service is an independent engine instance holding its own graph state.
type Service struct {
	config        *Config
	tracing       *tracing.Config
	logger        *slog.Logger
	bus           *event.Bus
	policy        *policy.Policy
	progress      *progress.Progress
	registerer    prometheus.Registerer
	metrics       *metrics.Metrics
	collaborator  connection.EdgeCollaborator
	plugins       plugin.Registry
	pluginList    []plugin.Plugin
	handlers      *aggregator.HandlerRegistry
	metaBaseURL   string
	metaFsOptions []storage.Option

	registry    *registry.Service
	connections *connection.Service
	aggregator  *aggregator.Service
	globals     *plugin.Globals
	bridge      *plugin.Bridge
	directives  *directive.Service
	processor   *processor.Service
	definitions *definition.Service
	initialised atomic.Bool
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	s.registry = registry.New(registry.WithEventBus(s.bus), registry.WithTrigger(s.ProcessNode))
	s.connections = connection.New(s.registry,
		connection.WithEdgeCollaborator(s.collaborator),
		connection.WithEventBus(s.bus),
		connection.WithLogger(s.logger))
	s.aggregator = aggregator.New(s.registry,
		aggregator.WithHandlers(s.handlers),
		aggregator.WithDefaultStrategy(s.config.DefaultStrategy),
		aggregator.WithLogger(s.logger))
	s.globals = plugin.NewGlobals()
	s.bridge = plugin.NewBridge(s.plugins, s, s.globals, s.policy)
	s.directives = directive.New(s.registry, directive.WithLogger(s.logger))
	s.processor = processor.New(s.registry, s.connections, s.aggregator, s.bridge, s.directives,
		processor.WithConfig(s.config.Processor),
		processor.WithEventBus(s.bus),
		processor.WithLogger(s.logger),
		processor.WithMetrics(s.metrics),
		processor.WithProgress(s.progress),
		processor.WithPolicy(s.policy))
	s.definitions = definition.New(definition.WithMetaService(meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)))
}

func (s *Service) ensureBaseSetup() {
	if s.logger == nil {
		s.logger = logging.New(os.Stderr, s.config.Logging.Level, s.config.Logging.Format)
	}
	if s.bus == nil {
		s.bus = event.NewBus(event.WithLogger(s.logger))
	}
	if s.policy == nil {
		s.policy = s.config.policy()
	}
	if s.progress == nil {
		s.progress = progress.New(nil)
	}
	s.metrics = metrics.New(s.registerer)
	if s.plugins == nil {
		s.plugins = plugin.New()
	}
	if builtin, ok := s.plugins.(*plugin.Service); ok {
		for _, p := range s.pluginList {
			builtin.Register(p)
		}
	} else if len(s.pluginList) > 0 {
		s.logger.Warn("plugins ignored by custom plugin registry", "count", len(s.pluginList))
	}
}

// Init validates the configuration and starts tracing when enabled.
func (s *Service) Init(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	cfg := &s.config.Tracing
	if s.tracing != nil {
		cfg = s.tracing
	}
	if err := tracing.Setup(cfg); err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	s.initialised.Store(true)
	logging.FromContext(ctx, s.logger).Debug("engine initialised", "execute", s.policy.Execute())
	return nil
}

// Cleanup drops every node, connection, deferred directive, subscription
// and global value. The engine can be reused afterwards.
func (s *Service) Cleanup(ctx context.Context) error {
	for _, id := range s.registry.IDs() {
		s.processor.Forget(id)
	}
	s.directives.Reset()
	s.connections.Reset()
	s.registry.Reset()
	s.globals.Reset()
	s.bus.Reset()
	s.progress.Reset()
	s.initialised.Store(false)
	return nil
}

// Initialised reports whether Init completed and Cleanup has not run since.
func (s *Service) Initialised() bool {
	return s.initialised.Load()
}

// RegisterNode stores data under id, replacing any previous registration.
// callback mirrors every committed change to an external store.
func (s *Service) RegisterNode(ctx context.Context, id string, data *graph.NodeData, callback registry.SyncCallback) (*graph.NodeData, error) {
	return s.registry.Register(ctx, id, data, callback)
}

// RegisterRawNode registers a loosely typed, possibly legacy, node document.
func (s *Service) RegisterRawNode(ctx context.Context, id string, raw map[string]interface{}, callback registry.SyncCallback) (*graph.NodeData, error) {
	return s.registry.RegisterRaw(ctx, id, raw, callback)
}

// UnregisterNode removes the node, every connection referencing it, its
// deferred directives and its processing marker.
func (s *Service) UnregisterNode(ctx context.Context, id string) error {
	if !s.registry.Has(id) {
		return fmt.Errorf("%w: %v", registry.ErrNodeNotFound, id)
	}
	if _, err := s.connections.RemoveNode(ctx, id); err != nil {
		return fmt.Errorf("failed to remove connections of %v: %w", id, err)
	}
	s.directives.Discard(ctx, id)
	s.processor.Forget(id)
	return s.registry.Unregister(ctx, id)
}

// GetNodeData returns the node snapshot or nil. The snapshot must not be modified.
func (s *Service) GetNodeData(id string) *graph.NodeData {
	return s.registry.Get(id)
}

// NodeIDs returns registered node ids.
func (s *Service) NodeIDs() []string {
	return s.registry.IDs()
}

// UpdateNodeData merges patch into the node and optionally processes it.
func (s *Service) UpdateNodeData(ctx context.Context, id string, patch *graph.Patch, trigger bool) (*graph.NodeData, error) {
	return s.registry.Update(ctx, id, patch, trigger)
}

// AddConnection connects source to target honouring the target connection policy.
func (s *Service) AddConnection(ctx context.Context, source, target, sourceHandle, targetHandle, edgeRef string) (*graph.Connection, error) {
	return s.connections.Add(ctx, source, target, sourceHandle, targetHandle, edgeRef)
}

func (s *Service) RemoveConnection(ctx context.Context, source, target, sourceHandle, targetHandle string) error {
	return s.connections.Remove(ctx, source, target, sourceHandle, targetHandle)
}

func (s *Service) RemoveConnectionByEdgeRef(ctx context.Context, edgeRef string) error {
	return s.connections.RemoveByEdgeRef(ctx, edgeRef)
}

// Connections lists connections matching parameters in insertion order.
func (s *Service) Connections(ctx context.Context, parameters ...*dao.Parameter) ([]*graph.Connection, error) {
	return s.connections.List(ctx, parameters...)
}

// ProcessNode runs the node and its downstream nodes.
func (s *Service) ProcessNode(ctx context.Context, id string) error {
	return s.processor.ProcessNode(ctx, id)
}

// ApplyDirective applies d emitted by emitterID to targetID, or defers it
// until FlushDirectives when processing.immediate is false.
func (s *Service) ApplyDirective(ctx context.Context, emitterID, targetID string, d *graph.Directive) error {
	return s.directives.Apply(ctx, emitterID, targetID, d)
}

// FlushDirectives applies every deferred directive.
func (s *Service) FlushDirectives(ctx context.Context) error {
	return s.directives.Flush(ctx)
}

// PendingDirectives returns the number of deferred directives.
func (s *Service) PendingDirectives() int {
	return s.directives.Pending()
}

// FailedDirectives returns the number of deferred directives that failed
// on flush and are kept until their nodes are removed or Cleanup runs.
func (s *Service) FailedDirectives() int {
	return s.directives.Failed()
}

// SetExecute toggles downstream propagation.
func (s *Service) SetExecute(execute bool) {
	s.policy.SetExecute(execute)
}

func (s *Service) Execute() bool {
	return s.policy.Execute()
}

// Subscribe registers handler for the given event types, or all when none.
func (s *Service) Subscribe(handler event.Handler, types ...event.Type) string {
	return s.bus.Subscribe(handler, types...)
}

func (s *Service) Unsubscribe(id string) bool {
	return s.bus.Unsubscribe(id)
}

// Progress returns a snapshot of the processing counters.
func (s *Service) Progress() progress.Progress {
	return s.progress.Snapshot()
}

// RegisterHandler adds a custom aggregation handler.
func (s *Service) RegisterHandler(name string, handler aggregator.Handler) {
	s.handlers.Register(name, handler)
}

// Globals returns the plugin global context bag.
func (s *Service) Globals() *plugin.Globals {
	return s.globals
}

// UpdateNode implements plugin.Host; it never triggers processing.
func (s *Service) UpdateNode(ctx context.Context, id string, patch *graph.Patch) (*graph.NodeData, error) {
	return s.registry.Update(ctx, id, patch, false)
}

// Upstream returns the ids of nodes feeding id.
func (s *Service) Upstream(id string) []string {
	return s.connections.Upstream(id)
}

// Downstream returns the ids of nodes fed by id.
func (s *Service) Downstream(id string) []string {
	return s.connections.Downstream(id)
}

// New creates an engine instance.
func New(options ...Option) *Service {
	ret := &Service{config: DefaultConfig(), handlers: aggregator.NewHandlerRegistry()}
	ret.init(options)
	return ret
}
