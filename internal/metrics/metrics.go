// Package metrics exposes batch job counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "magebridge"

// Record results counted per job
const (
	ResultImported = "imported"
	ResultExported = "exported"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

// Metrics holds the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  *prometheus.CounterVec
	lastRun  *prometheus.GaugeVec
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Batch job runs by job, channel and outcome.",
		}, []string{"job", "channel", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Batch job run time.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records handled by batch jobs.",
		}, []string{"job", "channel", "result"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"job", "channel"}),
	}
	m.registry.MustRegister(
		m.runs,
		m.duration,
		m.records,
		m.lastRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records one finished job run
func (m *Metrics) ObserveRun(job, channel string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else {
		m.lastRun.WithLabelValues(job, channel).SetToCurrentTime()
	}
	m.runs.WithLabelValues(job, channel, outcome).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// AddRecords counts n records of one result
func (m *Metrics) AddRecords(job, channel, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(job, channel, result).Add(float64(n))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
