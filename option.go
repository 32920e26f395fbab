package nodeflow

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs/storage"
	"github.com/viant/nodeflow/policy"
	"github.com/viant/nodeflow/progress"
	"github.com/viant/nodeflow/service/aggregator"
	"github.com/viant/nodeflow/service/connection"
	"github.com/viant/nodeflow/service/event"
	"github.com/viant/nodeflow/service/plugin"
	"github.com/viant/nodeflow/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the Service
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithPluginRegistry replaces the built-in plugin registry.
func WithPluginRegistry(registry plugin.Registry) Option {
	return func(s *Service) { s.plugins = registry }
}

// WithPlugins registers plugins with the built-in registry.
func WithPlugins(plugins ...plugin.Plugin) Option {
	return func(s *Service) {
		s.pluginList = append(s.pluginList, plugins...)
	}
}

// WithEdgeCollaborator sets the external graph notified of evicted edges.
func WithEdgeCollaborator(collaborator connection.EdgeCollaborator) Option {
	return func(s *Service) { s.collaborator = collaborator }
}

// WithHandler registers a custom aggregation handler under name.
func WithHandler(name string, handler aggregator.Handler) Option {
	return func(s *Service) {
		s.handlers.Register(name, handler)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetricsRegisterer registers the engine collectors with registerer.
func WithMetricsRegisterer(registerer prometheus.Registerer) Option {
	return func(s *Service) { s.registerer = registerer }
}

// WithPolicy sets the runtime policy; it takes precedence over Config.Policy.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithEventBus shares bus with the engine.
func WithEventBus(bus *event.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithProgress sets the tracker receiving processing counters.
func WithProgress(p *progress.Progress) Option {
	return func(s *Service) { s.progress = p }
}

// WithMetaBaseURL sets the base URL used to resolve relative graph locations.
func WithMetaBaseURL(url string) Option {
	return func(s *Service) {
		s.metaBaseURL = url
	}
}

// WithMetaFsOptions with meta file system options
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.metaFsOptions = options
	}
}

// WithTracing enables OpenTelemetry tracing on Init. If outputFile is empty the
// stdout exporter writes to os.Stdout; otherwise traces are written to the file.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.tracing = &tracing.Config{
			Enabled:        true,
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			OutputFile:     outputFile,
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
