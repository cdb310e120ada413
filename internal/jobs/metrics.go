package jobmetrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	expired  *prometheus.CounterVec
	lowStock *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddExpired increments the expired-batch counter for a warehouse.
func (m *Metrics) AddExpired(warehouseID int64, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.expired.WithLabelValues(strconv.FormatInt(warehouseID, 10)).Add(float64(count))
}

// AddLowStock increments the low-stock alert counter for a property.
func (m *Metrics) AddLowStock(propertyID int64, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.lowStock.WithLabelValues(strconv.FormatInt(propertyID, 10)).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeep_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeep_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "innkeep_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	expired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeep_expired_batches_total",
		Help: "Batches flagged as expired by the nightly sweep, per warehouse.",
	}, []string{"warehouse"})
	lowStock := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeep_low_stock_alerts_total",
		Help: "Low stock alerts raised by the scan, per property.",
	}, []string{"property"})
	registerer.MustRegister(runs, failures, duration, expired, lowStock)
	return &Metrics{runs: runs, failures: failures, duration: duration, expired: expired, lowStock: lowStock}
}
