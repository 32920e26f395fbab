package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")

	require.NoError(t, Setup(&Config{Enabled: true, ServiceName: "nodeflow", ServiceVersion: "0.0.1", OutputFile: fname}))

	_, span := StartSpan(context.Background(), "node.process")
	span.WithAttributes(map[string]string{"node.id": "a"}).WithInt("connections", 2)
	span.Event("aggregated")
	EndSpan(span, errors.New("failed"))

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, string(data), "node.process")
}

func TestSetup_Disabled(t *testing.T) {
	assert.NoError(t, Setup(nil))
	assert.NoError(t, Setup(&Config{}))
	var span *Span
	assert.NotPanics(t, func() { EndSpan(span, nil) })
}
