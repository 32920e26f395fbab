package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/nodeflow/internal/clock"
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/policy"
)

// AggregatedSourceID labels the single input built from aggregated data
// when no connection carries a value.
const AggregatedSourceID = "aggregated"

// ErrPluginFailed is wrapped by PLUGIN_ERROR results.
var ErrPluginFailed = errors.New("plugin failed")

// Bridge runs the plugin attached to a node.
type Bridge struct {
	registry Registry
	host     Host
	globals  *Globals
	policy   *policy.Policy
}

// NewBridge creates a bridge. A nil globals bag gets a fresh one.
func NewBridge(registry Registry, host Host, globals *Globals, p *policy.Policy) *Bridge {
	if globals == nil {
		globals = NewGlobals()
	}
	return &Bridge{registry: registry, host: host, globals: globals, policy: p}
}

// Globals returns the shared bag.
func (b *Bridge) Globals() *Globals {
	return b.globals
}

// Execute resolves and runs the node plugin. Configuration problems fail
// with PROCESSING_ERROR before the plugin is invoked; a run returning
// Success=false fails with PLUGIN_ERROR.
func (b *Bridge) Execute(ctx context.Context, nodeID string, node *graph.NodeData, aggregated interface{}, connections []*graph.Connection) (*Result, error) {
	if !node.HasPlugin() {
		return nil, b.processingError(nodeID, fmt.Errorf("node %v has no plugin", nodeID))
	}
	name := node.Plugin.Name
	if b.registry == nil || !b.registry.Has(name) {
		return nil, b.processingError(nodeID, fmt.Errorf("%w: %v", ErrPluginNotFound, name)).WithDetail("plugin", name)
	}
	if err := policy.Resolve(ctx, b.policy).Approve(ctx, name, nodeID); err != nil {
		return nil, b.processingError(nodeID, err).WithDetail("plugin", name)
	}
	config := node.Plugin.Config
	if config == nil {
		config = map[string]interface{}{}
	}
	if ok, problems := b.registry.ValidatePluginConfig(name, config); !ok {
		return nil, b.processingError(nodeID, fmt.Errorf("%w: %v", ErrInvalidConfig, strings.Join(problems, "; "))).
			WithDetail("plugin", name).
			WithDetail("problems", problems)
	}

	pctx := &Context{
		NodeID:     nodeID,
		Node:       node.Clone(),
		Aggregated: aggregated,
		Globals:    b.globals.Namespace(name),
		host:       b.host,
	}
	result, err := b.invoke(ctx, name, Inputs(connections, aggregated), config, pctx)
	if err != nil {
		return nil, graph.AsNodeError(err, graph.CodePlugin, nodeID, clock.Now()).WithDetail("plugin", name)
	}
	if result == nil {
		result = &Result{Success: true}
	}
	if !result.Success {
		return nil, graph.NewNodeError(graph.CodePlugin, nodeID, fmt.Errorf("%w: %v", ErrPluginFailed, result.Error()), clock.Now()).
			WithDetail("plugin", name).
			WithDetail("errors", result.Errors)
	}
	return result, nil
}

func (b *Bridge) invoke(ctx context.Context, name string, inputs []Input, config map[string]interface{}, pctx *Context) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %v panicked: %v", name, r)
		}
	}()
	return b.registry.ProcessWithPlugin(ctx, name, inputs, config, pctx)
}

func (b *Bridge) processingError(nodeID string, err error) *graph.NodeError {
	return graph.NewNodeError(graph.CodeProcessing, nodeID, err, clock.Now())
}

// Inputs builds plugin inputs: one entry per active connection carrying
// data, in connection order. When none carries data but aggregated is set,
// a single aggregated entry is returned.
func Inputs(connections []*graph.Connection, aggregated interface{}) []Input {
	ret := make([]Input, 0, len(connections))
	for _, conn := range connections {
		if !conn.Meta.IsActive || conn.Data == nil {
			continue
		}
		ret = append(ret, Input{SourceID: conn.SourceNodeID, Data: conn.Data})
	}
	if len(ret) == 0 && aggregated != nil {
		ret = append(ret, Input{SourceID: AggregatedSourceID, Data: aggregated})
	}
	return ret
}
