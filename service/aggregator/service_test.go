package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/service/registry"
)

var testTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T, config graph.InputConfig, plugin *graph.Plugin, sources map[string]interface{}, order ...string) *registry.Service {
	reg := registry.New()
	ctx := context.Background()
	connections := map[string]*graph.Connection{}
	for i, id := range order {
		_, err := reg.Register(ctx, id, &graph.NodeData{Output: graph.Output{Data: sources[id]}}, nil)
		require.NoError(t, err)
		c := graph.NewConnection(id, "t", "", "", "", testTime)
		c.Meta.Sequence = uint64(i + 1)
		connections[c.ID] = c
	}
	_, err := reg.Register(ctx, "t", &graph.NodeData{
		Input:  graph.Input{Connections: connections, Config: config},
		Plugin: plugin,
	}, nil)
	require.NoError(t, err)
	return reg
}

func TestService_Aggregate(t *testing.T) {
	sources := map[string]interface{}{
		"a": map[string]interface{}{"v": "a", "only": 1},
		"b": map[string]interface{}{"v": "b"},
	}
	handlers := NewHandlerRegistry()
	handlers.Register("count", func(ctx context.Context, connections []*graph.Connection, node *graph.NodeData) (interface{}, error) {
		return len(connections), nil
	})
	handlers.Register("fail", func(ctx context.Context, connections []*graph.Connection, node *graph.NodeData) (interface{}, error) {
		return nil, errors.New("handler failed")
	})
	handlers.Register("panic", func(ctx context.Context, connections []*graph.Connection, node *graph.NodeData) (interface{}, error) {
		panic("boom")
	})

	testCases := []struct {
		description string
		config      graph.InputConfig
		plugin      *graph.Plugin
		expected    interface{}
		expectErr   bool
		recovered   bool
	}{
		{
			description: "default merge",
			expected:    map[string]interface{}{"v": "b", "only": 1},
		},
		{
			description: "unknown strategy recovered",
			config:      graph.InputConfig{Strategy: "nope"},
			expected:    map[string]interface{}{},
			recovered:   true,
		},
		{
			description: "custom handler from input config",
			config:      graph.InputConfig{Strategy: StrategyCustom, Handler: "count"},
			expected:    2,
		},
		{
			description: "custom handler from plugin config",
			config:      graph.InputConfig{Strategy: StrategyCustom},
			plugin:      &graph.Plugin{Name: "p", Config: map[string]interface{}{HandlerConfigKey: "count"}},
			expected:    2,
		},
		{
			description: "custom handler error propagates",
			config:      graph.InputConfig{Strategy: StrategyCustom, Handler: "fail"},
			expectErr:   true,
		},
		{
			description: "custom handler panic propagates",
			config:      graph.InputConfig{Strategy: StrategyCustom, Handler: "panic"},
			expectErr:   true,
		},
		{
			description: "missing custom handler propagates",
			config:      graph.InputConfig{Strategy: StrategyCustom, Handler: "missing"},
			expectErr:   true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			reg := setup(t, testCase.config, testCase.plugin, sources, "a", "b")
			srv := New(reg, WithHandlers(handlers))
			result, err := srv.Aggregate(context.Background(), "t")
			if testCase.expectErr {
				var nodeErr *graph.NodeError
				require.True(t, errors.As(err, &nodeErr))
				assert.Equal(t, graph.CodeAggregation, nodeErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, result.Data)
			assert.Equal(t, testCase.recovered, result.Recovered != nil)
			processed := reg.Get("t").Input.Processed
			assert.Equal(t, testCase.expected, processed.Data)
			assert.Equal(t, 2, processed.Meta.ConnectionCount)
		})
	}
}

func TestService_Refresh(t *testing.T) {
	reg := setup(t, graph.InputConfig{}, nil, map[string]interface{}{"a": "x", "b": 1.5}, "a", "b")
	srv := New(reg)
	ctx := context.Background()

	first, err := srv.Refresh(ctx, "t")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].SourceNodeID)
	assert.Equal(t, "string", first[0].Meta.DataType)
	assert.Equal(t, "number", first[1].Meta.DataType)
	require.NotNil(t, first[0].Meta.LastProcessed)
	stamp := *first[0].Meta.LastProcessed

	_, err = reg.Update(ctx, "a", graph.DataPatch("y"), false)
	require.NoError(t, err)
	require.NoError(t, reg.Unregister(ctx, "b"))

	second, err := srv.Refresh(ctx, "t")
	require.NoError(t, err)
	require.Len(t, second, 1, "ghost source skipped")
	assert.Equal(t, "y", second[0].Data, "pull current source output")
	assert.Equal(t, stamp, *second[0].Meta.LastProcessed, "first write wins")
	assert.Len(t, reg.Get("t").Input.Connections, 1)
}
