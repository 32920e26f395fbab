package meta

import (
	"context"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	_ "github.com/viant/afs/embed"
)

//go:embed testdata/*
var testFS embed.FS

func TestService_Load(t *testing.T) {
	t.Setenv("NODEFLOW_META_NAME", "demo")
	srv := New(afs.New(), "embed:///testdata", &testFS)

	testCases := []struct {
		description string
		location    string
		expectErr   bool
	}{
		{description: "relative location", location: "doc.yaml"},
		{description: "absolute location", location: "embed:///testdata/doc.yaml"},
		{description: "missing document", location: "missing.yaml", expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			var doc struct {
				Name   string `yaml:"name"`
				Values []int  `yaml:"values"`
			}
			err := srv.Load(context.Background(), testCase.location, &doc)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "demo", doc.Name)
			assert.Equal(t, []int{1, 2}, doc.Values)
		})
	}
}

func TestService_URL(t *testing.T) {
	assert.Equal(t, "file:///tmp/graphs/a.yaml", New(nil, "file:///tmp/graphs").URL("a.yaml"))
	assert.Equal(t, "mem://localhost/a.yaml", New(nil, "file:///tmp/graphs").URL("mem://localhost/a.yaml"))
	assert.Equal(t, "a.yaml", New(nil, "").URL("a.yaml"))
}
