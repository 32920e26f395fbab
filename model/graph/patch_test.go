package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool       { return &v }
func stringPtr(v string) *string { return &v }

func baseNode() *NodeData {
	node := Normalize(&NodeData{
		Meta: Meta{Label: "source", Function: "collect", Capabilities: []string{"a", "b"}},
		Input: Input{
			Connections: map[string]*Connection{
				"x-n-default-default": {ID: "x-n-default-default", SourceNodeID: "x", TargetNodeID: "n"},
			},
			Config: InputConfig{Strategy: "merge", Options: map[string]interface{}{"keep": 1}},
		},
		Output: Output{Data: map[string]interface{}{"v": 1, "list": []interface{}{1, 2}}},
		Plugin: &Plugin{Name: "p1", Config: map[string]interface{}{"k": "v"}},
	})
	return node
}

func TestPatch_Apply(t *testing.T) {
	testCases := []struct {
		description string
		patch       *Patch
		check       func(t *testing.T, before, after *NodeData)
	}{
		{
			description: "meta merges non-zero fields",
			patch:       &Patch{Meta: &Meta{Label: "renamed"}},
			check: func(t *testing.T, before, after *NodeData) {
				assert.Equal(t, "renamed", after.Meta.Label)
				assert.Equal(t, "collect", after.Meta.Function)
				assert.Equal(t, []string{"a", "b"}, after.Meta.Capabilities)
			},
		},
		{
			description: "meta capabilities replaced, not appended",
			patch:       &Patch{Meta: &Meta{Capabilities: []string{"c"}}},
			check: func(t *testing.T, before, after *NodeData) {
				assert.Equal(t, []string{"c"}, after.Meta.Capabilities)
			},
		},
		{
			description: "connections map replaced wholesale",
			patch: &Patch{Input: &InputPatch{Connections: map[string]*Connection{
				"y-n-default-default": {ID: "y-n-default-default", SourceNodeID: "y", TargetNodeID: "n"},
			}}},
			check: func(t *testing.T, before, after *NodeData) {
				assert.Len(t, after.Input.Connections, 1)
				assert.Contains(t, after.Input.Connections, "y-n-default-default")
				assert.Contains(t, before.Input.Connections, "x-n-default-default")
			},
		},
		{
			description: "input config merges field by field",
			patch: &Patch{Input: &InputPatch{Config: &InputConfigPatch{
				AllowMultipleConnections: boolPtr(true),
				Options:                  map[string]interface{}{"extra": 2},
			}}},
			check: func(t *testing.T, before, after *NodeData) {
				assert.True(t, after.Input.Config.AllowMultipleConnections)
				assert.Equal(t, "merge", after.Input.Config.Strategy)
				assert.Equal(t, map[string]interface{}{"keep": 1, "extra": 2}, after.Input.Config.Options)
				assert.Equal(t, map[string]interface{}{"keep": 1}, before.Input.Config.Options)
			},
		},
		{
			description: "input config strategy override",
			patch:       &Patch{Input: &InputPatch{Config: &InputConfigPatch{Strategy: stringPtr("array")}}},
			check: func(t *testing.T, before, after *NodeData) {
				assert.Equal(t, "array", after.Input.Config.Strategy)
			},
		},
		{
			description: "output data replaced, never merged",
			patch:       DataPatch(map[string]interface{}{"w": 2}),
			check: func(t *testing.T, before, after *NodeData) {
				assert.Equal(t, map[string]interface{}{"w": 2}, after.Output.Data)
				assert.Equal(t, map[string]interface{}{"v": 1, "list": []interface{}{1, 2}}, before.Output.Data)
			},
		},
		{
			description: "output data explicitly cleared",
			patch:       DataPatch(nil),
			check: func(t *testing.T, before, after *NodeData) {
				assert.Nil(t, after.Output.Data)
			},
		},
		{
			description: "output data untouched when not set",
			patch:       &Patch{Output: &OutputPatch{Meta: &OutputMeta{Status: StatusSuccess}}},
			check: func(t *testing.T, before, after *NodeData) {
				assert.Equal(t, before.Output.Data, after.Output.Data)
				assert.Equal(t, StatusSuccess, after.Output.Meta.Status)
			},
		},
		{
			description: "output meta keeps unset fields",
			patch:       &Patch{Output: &OutputPatch{Meta: &OutputMeta{ProcessingTime: time.Second}}},
			check: func(t *testing.T, before, after *NodeData) {
				assert.Equal(t, StatusIdle, after.Output.Meta.Status)
				assert.Equal(t, time.Second, after.Output.Meta.ProcessingTime)
			},
		},
		{
			description: "error section replaced",
			patch:       &Patch{Error: &ErrorState{Errors: []*NodeError{{Code: CodeProcessing}}}},
			check: func(t *testing.T, before, after *NodeData) {
				assert.True(t, after.Error.HasError)
				assert.Len(t, after.Error.Errors, 1)
				assert.False(t, before.Error.HasError)
			},
		},
		{
			description: "plugin replaced including config",
			patch:       &Patch{Plugin: &Plugin{Name: "p2"}},
			check: func(t *testing.T, before, after *NodeData) {
				assert.Equal(t, "p2", after.Plugin.Name)
				assert.Nil(t, after.Plugin.Config)
				assert.Equal(t, "p1", before.Plugin.Name)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			before := baseNode()
			after := tc.patch.Apply(before)
			require.NotNil(t, after)
			assert.NotSame(t, before, after)
			tc.check(t, before, after)
		})
	}
}

func TestPatch_Validate(t *testing.T) {
	assert.NoError(t, DataPatch(map[string]interface{}{"v": 1}).Validate())
	assert.NoError(t, (&Patch{Meta: &Meta{Label: "x"}}).Validate())
	err := DataPatch(map[string]interface{}{"fn": func() {}}).Validate()
	assert.ErrorIs(t, err, ErrNotSerializable)
	assert.ErrorIs(t, DataPatch(make(chan int)).Validate(), ErrNotSerializable)
}

func TestNormalize(t *testing.T) {
	node := Normalize(nil)
	assert.Equal(t, CategoryProcess, node.Meta.Category)
	assert.Equal(t, DefaultVersion, node.Meta.Version)
	assert.NotNil(t, node.Input.Connections)
	assert.NotNil(t, node.Output.Directives)
	assert.NotNil(t, node.Error.Errors)
	assert.Equal(t, StatusIdle, node.Status())
}
