package processor

import (
	"log/slog"

	"github.com/viant/nodeflow/metrics"
	"github.com/viant/nodeflow/policy"
	"github.com/viant/nodeflow/progress"
	"github.com/viant/nodeflow/service/event"
)

// Option customises a processor Service.
type Option func(*Service)

// WithEventBus sets the bus receiving lifecycle events.
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

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithProgress sets the default progress tracker. A tracker carried by the
// context takes precedence.
func WithProgress(p *progress.Progress) Option {
	return func(s *Service) {
		s.progress = p
	}
}

// WithPolicy sets the policy whose execute flag gates downstream propagation.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithMaxConcurrency limits the number of downstream nodes processed at
// once by a single fan out; zero means unlimited.
func WithMaxConcurrency(limit int) Option {
	return func(s *Service) {
		s.config.MaxConcurrency = limit
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
