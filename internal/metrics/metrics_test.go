package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePass("viewport", time.Millisecond, nil)
	m.ObservePass("viewport", time.Millisecond, errors.New("x"))
	m.ObserveNode("print", time.Microsecond, nil)
	m.ObserveBuild(true, nil)
	m.InstanceAdded()
	m.SetDirty("abc", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues("viewport", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues("viewport", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodeEvaluations.WithLabelValues("print", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.builds.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.dirtyNodes.WithLabelValues("abc")))

	m.InstanceRemoved("abc")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.instances))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePass("render", time.Second, nil)
		m.ObserveNode("x", time.Second, nil)
		m.InstanceAdded()
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ObservePass("viewport", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "depsgraph_passes_total")
}
