package definition

import (
	"context"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	_ "github.com/viant/afs/embed"
	"github.com/viant/nodeflow/service/meta"
)

//go:embed testdata/*
var testFS embed.FS

func TestService_Load(t *testing.T) {
	srv := New(WithMetaService(meta.New(afs.New(), "embed:///testdata", &testFS)))
	ctx := context.Background()

	testCases := []struct {
		description string
		url         string
		expectErr   bool
		name        string
		nodes       []string
		connections int
	}{
		{description: "mapping nodes", url: "pipeline", name: "pipeline", nodes: []string{"numbers", "sum", "report"}, connections: 2},
		{description: "sequence nodes", url: "list.yaml", name: "list", nodes: []string{"a", "b"}},
		{description: "duplicate node", url: "duplicate.yaml", expectErr: true},
		{description: "connection without target", url: "invalid.yaml", expectErr: true},
		{description: "missing file", url: "missing.yaml", expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			def, err := srv.Load(ctx, testCase.url)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.name, def.Name)
			var ids []string
			for _, node := range def.Nodes {
				ids = append(ids, node.ID)
			}
			assert.Equal(t, testCase.nodes, ids)
			assert.Len(t, def.Connections, testCase.connections)
		})
	}
}

func TestService_LoadDetails(t *testing.T) {
	srv := New(WithMetaService(meta.New(afs.New(), "embed:///testdata", &testFS)))
	def, err := srv.Load(context.Background(), "pipeline.yaml")
	require.NoError(t, err)

	sum := def.Node("sum")
	require.NotNil(t, sum)
	assert.Equal(t, map[string]interface{}{"name": "sum", "config": map[string]interface{}{"field": "values"}}, sum.Data["plugin"])
	assert.Equal(t, "Report", def.Node("report").Data["label"])
	assert.Nil(t, def.Node("missing"))
	assert.Equal(t, &Connection{Source: "sum", Target: "report", SourceHandle: "total", TargetHandle: "in"}, def.Connections[1])

	again, err := srv.Load(context.Background(), "pipeline.yaml")
	require.NoError(t, err)
	assert.Same(t, def, again)
	srv.Refresh("pipeline.yaml")
	again, err = srv.Load(context.Background(), "pipeline.yaml")
	require.NoError(t, err)
	assert.NotSame(t, def, again)
}

func TestService_DecodeYAML(t *testing.T) {
	srv := New()
	def, err := srv.DecodeYAML([]byte("nodes:\n  x: {}\n"))
	require.NoError(t, err)
	assert.Contains(t, def.Name, "anonymous-")
	assert.Equal(t, map[string]interface{}{}, def.Node("x").Data)

	_, err = srv.DecodeYAML([]byte("workflow: {}"))
	assert.Error(t, err)
	_, err = srv.DecodeYAML([]byte("- a"))
	assert.Error(t, err)
}
