// Package metrics exposes Prometheus collectors for the evaluation engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the engine's collectors.
type Metrics struct {
	passes          *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
	nodeEvaluations *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	dirtyNodes      *prometheus.GaugeVec
	instances       prometheus.Gauge
	builds          *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		passes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "depsgraph_passes_total",
			Help: "Evaluation passes by mode and result.",
		}, []string{"mode", "result"}),
		passDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "depsgraph_pass_duration_seconds",
			Help:    "Duration of evaluation passes.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"mode"}),
		nodeEvaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "depsgraph_node_evaluations_total",
			Help: "Operation node evaluations by kind and result.",
		}, []string{"kind", "result"}),
		nodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "depsgraph_node_duration_seconds",
			Help:    "Duration of operation node evaluations.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"kind"}),
		dirtyNodes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "depsgraph_dirty_nodes",
			Help: "Dirty nodes per instance after the last pass.",
		}, []string{"instance"}),
		instances: f.NewGauge(prometheus.GaugeOpts{
			Name: "depsgraph_instances",
			Help: "Live graph instances.",
		}),
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "depsgraph_builds_total",
			Help: "Graph builds by result.",
		}, []string{"result"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObservePass records one evaluation pass.
func (m *Metrics) ObservePass(mode string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(mode, result(err)).Inc()
	m.passDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveNode records one node evaluation.
func (m *Metrics) ObserveNode(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.nodeEvaluations.WithLabelValues(kind, result(err)).Inc()
	m.nodeDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveBuild records one graph build. Unchanged builds count as "skipped".
func (m *Metrics) ObserveBuild(unchanged bool, err error) {
	if m == nil {
		return
	}
	r := result(err)
	if err == nil && unchanged {
		r = "skipped"
	}
	m.builds.WithLabelValues(r).Inc()
}

// SetDirty records how many nodes of an instance are still dirty.
func (m *Metrics) SetDirty(instance string, n int) {
	if m == nil {
		return
	}
	m.dirtyNodes.WithLabelValues(instance).Set(float64(n))
}

// InstanceAdded counts a new instance.
func (m *Metrics) InstanceAdded() {
	if m == nil {
		return
	}
	m.instances.Inc()
}

// InstanceRemoved counts a freed instance and drops its series.
func (m *Metrics) InstanceRemoved(instance string) {
	if m == nil {
		return
	}
	m.instances.Dec()
	m.dirtyNodes.DeleteLabelValues(instance)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
