package nodeflow

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/viant/afs/storage"
	"github.com/viant/nodeflow/internal/logging"
	"github.com/viant/nodeflow/policy"
	"github.com/viant/nodeflow/service/aggregator"
	"github.com/viant/nodeflow/service/meta"
	"github.com/viant/nodeflow/service/processor"
	"github.com/viant/nodeflow/tracing"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from JSON or YAML; zero values inherit package defaults.
type Config struct {
	// Execute gates downstream propagation and overrides policy.execute.
	Execute         *bool            `json:"execute,omitempty" yaml:"execute,omitempty"`
	DefaultStrategy string           `json:"defaultStrategy,omitempty" yaml:"defaultStrategy,omitempty" validate:"omitempty,oneof=merge priority array latest custom"`
	Processor       processor.Config `json:"processor" yaml:"processor"`
	Logging         LoggingConfig    `json:"logging" yaml:"logging"`
	Tracing         tracing.Config   `json:"tracing" yaml:"tracing"`
	Policy          *policy.Config   `json:"policy,omitempty" yaml:"policy,omitempty"`
}

type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=json text"`
}

// DefaultConfig returns a Config populated with the engine defaults.
// Callers may modify the returned struct before passing it to WithConfig.
func DefaultConfig() *Config {
	execute := true
	return &Config{
		Execute:         &execute,
		DefaultStrategy: aggregator.StrategyMerge,
		Processor:       processor.DefaultConfig(),
		Logging:         LoggingConfig{Level: "info", Format: logging.FormatJSON},
		Tracing:         tracing.Config{ServiceName: "nodeflow", ServiceVersion: Version},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// policy builds the runtime policy described by the config.
func (c *Config) policy() *policy.Policy {
	ret := policy.FromConfig(c.Policy)
	if ret == nil {
		ret = policy.New(true)
	}
	if c.Execute != nil {
		ret.SetExecute(*c.Execute)
	}
	return ret
}

// LoadConfig reads a YAML config from URL on top of DefaultConfig.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.New(nil, "", options...).Load(ctx, URL, ret); err != nil {
		return nil, err
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
