package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.Started()
	m.Started()
	m.Finished("sum", StatusSuccess, 10*time.Millisecond)
	m.Skipped(StatusBusy)
	m.Aggregated("merge")
	m.Directive(DirectiveAccepted, 3)
	m.Directive(DirectiveFailed, 0)
	m.Paused()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(StatusBusy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paused))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.directives.WithLabelValues(DirectiveAccepted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.directives.WithLabelValues(DirectiveFailed)))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Started()
		m.Finished("p", StatusError, time.Second)
		m.Skipped(StatusSkipped)
		m.Aggregated("x")
		m.Directive(DirectiveFailed, 1)
		m.Paused()
	})
	assert.NotNil(t, New(nil))
}
