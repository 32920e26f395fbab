package directive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/service/registry"
)

func newDirective(section, path string, op graph.Operation, payload interface{}) *graph.Directive {
	return &graph.Directive{
		Type:       "update",
		Target:     &graph.Target{Section: section, Path: path, Operation: op},
		Payload:    payload,
		Processing: &graph.Processing{},
		Meta:       &graph.DirectiveMeta{Source: "emitter", Timestamp: "2024-01-01T00:00:00.000Z"},
	}
}

func deferred(d *graph.Directive, priority int) *graph.Directive {
	immediate := false
	d.Processing.Immediate = &immediate
	d.Processing.Priority = priority
	return d
}

func setupRegistry(t *testing.T) *registry.Service {
	reg := registry.New()
	ctx := context.Background()
	_, err := reg.Register(ctx, "emitter", nil, nil)
	require.NoError(t, err)
	_, err = reg.Register(ctx, "target", &graph.NodeData{
		Meta:   graph.Meta{Label: "foo", Function: "keep"},
		Output: graph.Output{Data: map[string]interface{}{"count": 1, "tags": []interface{}{"a"}}},
		Plugin: &graph.Plugin{Name: "p", Config: map[string]interface{}{"threshold": 1}},
	}, nil)
	require.NoError(t, err)
	return reg
}

func TestService_Validate(t *testing.T) {
	srv := New(registry.New())
	valid := newDirective("meta", "label", graph.OperationSet, "x")
	assert.NoError(t, srv.Validate(valid))

	testCases := []struct {
		description string
		mutate      func(d *graph.Directive)
	}{
		{description: "missing type", mutate: func(d *graph.Directive) { d.Type = "" }},
		{description: "missing target", mutate: func(d *graph.Directive) { d.Target = nil }},
		{description: "bad section", mutate: func(d *graph.Directive) { d.Target.Section = "other" }},
		{description: "bad operation", mutate: func(d *graph.Directive) { d.Target.Operation = "delete" }},
		{description: "missing path", mutate: func(d *graph.Directive) { d.Target.Path = "" }},
		{description: "malformed path", mutate: func(d *graph.Directive) { d.Target.Path = "a..b" }},
		{description: "missing payload", mutate: func(d *graph.Directive) { d.Payload = nil }},
		{description: "missing processing", mutate: func(d *graph.Directive) { d.Processing = nil }},
		{description: "missing meta", mutate: func(d *graph.Directive) { d.Meta = nil }},
		{description: "missing meta source", mutate: func(d *graph.Directive) { d.Meta.Source = "" }},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			d := newDirective("meta", "label", graph.OperationSet, "x")
			testCase.mutate(d)
			assert.ErrorIs(t, srv.Validate(d), ErrInvalidDirective)
		})
	}
}

func TestService_Apply(t *testing.T) {
	testCases := []struct {
		description string
		directive   *graph.Directive
		check       func(t *testing.T, node *graph.NodeData)
	}{
		{
			description: "append onto meta label",
			directive:   newDirective("meta", "label", graph.OperationAppend, "bar"),
			check: func(t *testing.T, node *graph.NodeData) {
				assert.Equal(t, "foobar", node.Meta.Label)
				assert.Equal(t, "keep", node.Meta.Function)
			},
		},
		{
			description: "set output data field keeps siblings",
			directive:   newDirective("output", "data.count", graph.OperationSet, 5),
			check: func(t *testing.T, node *graph.NodeData) {
				assert.Equal(t, map[string]interface{}{"count": 5, "tags": []interface{}{"a"}}, node.Output.Data)
			},
		},
		{
			description: "append output data slice",
			directive:   newDirective("output", "data.tags", graph.OperationAppend, "b"),
			check: func(t *testing.T, node *graph.NodeData) {
				assert.Equal(t, []interface{}{"a", "b"}, node.Output.Data.(map[string]interface{})["tags"])
			},
		},
		{
			description: "merge plugin config",
			directive:   newDirective("plugin", "config", graph.OperationMerge, map[string]interface{}{"limit": 3}),
			check: func(t *testing.T, node *graph.NodeData) {
				assert.Equal(t, map[string]interface{}{"threshold": 1, "limit": 3}, node.Plugin.Config)
			},
		},
		{
			description: "transform expression",
			directive:   newDirective("output", "data.count", graph.OperationTransform, Expression{Expr: "value + 41"}),
			check: func(t *testing.T, node *graph.NodeData) {
				assert.Equal(t, 42, node.Output.Data.(map[string]interface{})["count"])
			},
		},
		{
			description: "input config strategy",
			directive:   newDirective("input", "config.strategy", graph.OperationSet, "array"),
			check: func(t *testing.T, node *graph.NodeData) {
				assert.Equal(t, "array", node.Input.Config.Strategy)
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			reg := setupRegistry(t)
			srv := New(reg)
			require.NoError(t, srv.Apply(context.Background(), "emitter", "target", testCase.directive))
			testCase.check(t, reg.Get("target"))
			assert.False(t, reg.Get("emitter").Error.HasError)
		})
	}
}

func TestService_Apply_Conditional(t *testing.T) {
	reg := setupRegistry(t)
	srv := New(reg)
	ctx := context.Background()

	skipped := newDirective("output", "data.count", graph.OperationSet, 100)
	skipped.Processing.Conditional = "value > 10"
	require.NoError(t, srv.Apply(ctx, "emitter", "target", skipped))
	assert.Equal(t, 1, reg.Get("target").Output.Data.(map[string]interface{})["count"])

	applied := newDirective("output", "data.count", graph.OperationSet, 100)
	applied.Processing.Conditional = "value < payload && node.meta.label == 'foo'"
	require.NoError(t, srv.Apply(ctx, "emitter", "target", applied))
	assert.Equal(t, 100, reg.Get("target").Output.Data.(map[string]interface{})["count"])
}

func TestService_Apply_Failures(t *testing.T) {
	testCases := []struct {
		description string
		targetID    string
		directive   *graph.Directive
	}{
		{description: "invalid structure", targetID: "target", directive: newDirective("meta", "", graph.OperationSet, "x")},
		{description: "missing target node", targetID: "ghost", directive: newDirective("meta", "label", graph.OperationSet, "x")},
		{description: "cannot descend", targetID: "target", directive: newDirective("output", "data.count.deeper", graph.OperationSet, "x")},
		{description: "index past end", targetID: "target", directive: newDirective("output", "data.tags[5]", graph.OperationSet, "x")},
		{description: "huge index", targetID: "target", directive: newDirective("output", "data.tags[9000000000000000000]", graph.OperationSet, "x")},
		{description: "panicking transform", targetID: "target", directive: newDirective("meta", "label", graph.OperationTransform, TransformFunc(func(value interface{}) interface{} {
			panic("transform failed")
		}))},
		{description: "bad condition", targetID: "target", directive: func() *graph.Directive {
			d := newDirective("meta", "label", graph.OperationSet, "x")
			d.Processing.Conditional = "value +"
			return d
		}()},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			reg := setupRegistry(t)
			srv := New(reg)
			before := reg.Get("emitter").Status()
			err := srv.Apply(context.Background(), "emitter", testCase.targetID, testCase.directive)
			var nodeErr *graph.NodeError
			require.True(t, errors.As(err, &nodeErr))
			assert.Equal(t, graph.CodeDirective, nodeErr.Code)

			emitter := reg.Get("emitter")
			assert.True(t, emitter.Error.HasError)
			assert.Len(t, emitter.Error.Errors, 1)
			assert.Equal(t, before, emitter.Status(), "status unchanged")
			assert.Equal(t, "foo", reg.Get("target").Meta.Label)
			assert.Equal(t, []interface{}{"a"}, reg.Get("target").Output.Data.(map[string]interface{})["tags"])
		})
	}
}

func TestService_ApplyAll_Isolation(t *testing.T) {
	reg := setupRegistry(t)
	srv := New(reg)
	err := srv.ApplyAll(context.Background(), "emitter", map[string][]*graph.Directive{
		"target": {
			newDirective("meta", "", graph.OperationSet, "x"),
			newDirective("meta", "label", graph.OperationSet, "applied"),
		},
		"ghost": {newDirective("meta", "label", graph.OperationSet, "x")},
	})
	assert.Error(t, err)
	assert.Equal(t, "applied", reg.Get("target").Meta.Label)
	assert.Len(t, reg.Get("emitter").Error.Errors, 2)
}

func TestService_Flush(t *testing.T) {
	reg := setupRegistry(t)
	srv := New(reg)
	ctx := context.Background()

	require.NoError(t, srv.Apply(ctx, "emitter", "target", deferred(newDirective("meta", "label", graph.OperationAppend, "-low"), 1)))
	require.NoError(t, srv.Apply(ctx, "emitter", "target", deferred(newDirective("meta", "label", graph.OperationAppend, "-high"), 9)))
	require.NoError(t, srv.Apply(ctx, "emitter", "target", deferred(newDirective("meta", "label", graph.OperationAppend, "-mid"), 5)))
	require.NoError(t, srv.Apply(ctx, "emitter", "target", deferred(newDirective("meta", "label", graph.OperationAppend, "-mid2"), 5)))

	assert.Equal(t, "foo", reg.Get("target").Meta.Label, "deferred until flush")
	assert.Equal(t, 4, srv.Pending())

	require.NoError(t, srv.Flush(ctx))
	assert.Equal(t, "foo-high-mid-mid2-low", reg.Get("target").Meta.Label)
	assert.Equal(t, 0, srv.Pending())
}

func TestService_Discard(t *testing.T) {
	reg := setupRegistry(t)
	srv := New(reg)
	ctx := context.Background()
	require.NoError(t, srv.Apply(ctx, "emitter", "target", deferred(newDirective("meta", "label", graph.OperationSet, "a"), 1)))
	require.NoError(t, srv.Apply(ctx, "emitter", "emitter", deferred(newDirective("meta", "label", graph.OperationSet, "b"), 1)))
	srv.Discard(ctx, "target")
	assert.Equal(t, 1, srv.Pending())
}

func TestService_DiscardFailed(t *testing.T) {
	reg := setupRegistry(t)
	_, err := reg.Register(context.Background(), "other", nil, nil)
	require.NoError(t, err)
	srv := New(reg)
	ctx := context.Background()
	require.NoError(t, srv.Apply(ctx, "emitter", "target", deferred(newDirective("output", "data.tags[7]", graph.OperationSet, "x"), 1)))
	require.NoError(t, srv.Apply(ctx, "other", "other", deferred(newDirective("output", "data.tags[3]", graph.OperationSet, "x"), 1)))
	assert.Error(t, srv.Flush(ctx))
	assert.Equal(t, 2, srv.Failed())

	srv.Discard(ctx, "target")
	assert.Equal(t, 1, srv.Failed())

	require.NoError(t, srv.Apply(ctx, "emitter", "target", deferred(newDirective("meta", "label", graph.OperationSet, "a"), 1)))
	srv.Reset()
	assert.Equal(t, 0, srv.Failed())
	assert.Equal(t, 0, srv.Pending())
}
