package nodeflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/nodeflow"
	"github.com/viant/nodeflow/policy"
	"github.com/viant/nodeflow/service/aggregator"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := nodeflow.LoadConfig(context.Background(), "embed:///testdata/config.yaml", &embedFS)
	require.NoError(t, err)
	require.NotNil(t, cfg.Execute)
	assert.False(t, *cfg.Execute)
	assert.Equal(t, aggregator.StrategyPriority, cfg.DefaultStrategy)
	assert.Equal(t, 4, cfg.Processor.MaxConcurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "nodeflow", cfg.Tracing.ServiceName)
	require.NotNil(t, cfg.Policy)
	assert.Equal(t, []string{"shell"}, cfg.Policy.BlockList)

	srv := newService(nodeflow.WithConfig(cfg))
	require.NoError(t, srv.Init(context.Background()))
	assert.False(t, srv.Execute())
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		mutate      func(c *nodeflow.Config)
		expectErr   bool
	}{
		{description: "defaults", mutate: func(c *nodeflow.Config) {}},
		{description: "unknown strategy", mutate: func(c *nodeflow.Config) { c.DefaultStrategy = "sum" }, expectErr: true},
		{description: "negative concurrency", mutate: func(c *nodeflow.Config) { c.Processor.MaxConcurrency = -1 }, expectErr: true},
		{description: "unknown log format", mutate: func(c *nodeflow.Config) { c.Logging.Format = "xml" }, expectErr: true},
		{description: "unknown policy mode", mutate: func(c *nodeflow.Config) { c.Policy = &policy.Config{Mode: "maybe"} }, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			cfg := nodeflow.DefaultConfig()
			testCase.mutate(cfg)
			err := cfg.Validate()
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
