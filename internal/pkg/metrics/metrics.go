package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the attendance counters and histograms. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ReconcileRows        *prometheus.CounterVec
	ReconcileOverrides   *prometheus.CounterVec
	ReconcileRunDuration *prometheus.HistogramVec
	CheckIns             *prometheus.CounterVec
	CheckInDistance      prometheus.Histogram
}

// New registers all metrics on a fresh registry, so repeated calls in tests do not collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ReconcileRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_reconcile_rows_total",
			Help: "Rows processed by batch runs, by stage (ingest, reconcile) and outcome",
		}, []string{"stage", "outcome"}),
		ReconcileOverrides: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_reconcile_overrides_total",
			Help: "Data-quality overrides applied during reconciliation, by rule",
		}, []string{"rule"}),
		ReconcileRunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_reconcile_run_duration_seconds",
			Help:    "Duration of batch runs by job",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		}, []string{"job"}),
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_checkin_total",
			Help: "Check-in submissions by expected action and outcome",
		}, []string{"action", "outcome"}),
		CheckInDistance: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "attendance_checkin_distance_meters",
			Help:    "Server-computed distance between a check-in and the employee's site",
			Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 5000},
		}),
	}
}

// Handler serves the registry for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AddRows(stage, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ReconcileRows.WithLabelValues(stage, outcome).Add(float64(n))
}

func (m *Metrics) IncOverride(rule string) {
	if m == nil {
		return
	}
	m.ReconcileOverrides.WithLabelValues(rule).Inc()
}

// ObserveRun records the duration of a batch run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObserveRun(job string, start time.Time) {
	if m == nil {
		return
	}
	m.ReconcileRunDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncCheckIn(action, outcome string) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) ObserveDistance(meters float64) {
	if m == nil {
		return
	}
	m.CheckInDistance.Observe(meters)
}
