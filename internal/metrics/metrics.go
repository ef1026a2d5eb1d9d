// Package metrics defines the prometheus collectors fed by ranking runs.
package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zombar/viralrank/internal/models"
	"github.com/zombar/viralrank/internal/tracing"
)

// Run outcomes used as the status label
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusError   = "error"
)

// BusinessMetrics tracks ranking runs
type BusinessMetrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	StepCandidates *prometheus.CounterVec
	DegradedTotal  *prometheus.CounterVec
	ClipsReturned  prometheus.Histogram
	MalformedTotal prometheus.Counter
	QueueWait      prometheus.Histogram
}

// NewBusinessMetrics registers the ranking collectors with reg, or with the
// default registerer when reg is nil.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &BusinessMetrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_runs_total",
			Help:      "Ranking runs by outcome.",
		}, []string{"status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_run_duration_seconds",
			Help:      "Wall time of a ranking run.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"status"}),
		StepCandidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_step_candidates_total",
			Help:      "Candidates surviving each pipeline step.",
		}, []string{"step"}),
		DegradedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_degraded_total",
			Help:      "Runs that continued without an optional capability.",
		}, []string{"capability"}),
		ClipsReturned: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_clips_returned",
			Help:      "Clips returned per run.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		MalformedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_candidates_total",
			Help:      "Candidates analysed with default-filled fields.",
		}),
		QueueWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time a ranking task spent queued.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// ObserveRun records the outcome of one run
func (m *BusinessMetrics) ObserveRun(ctx context.Context, report models.RunReport, status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.ObserveDurationWithExemplar(ctx, m.RunDuration, duration.Seconds(), status)

	if status == StatusError {
		return
	}

	steps := []struct {
		name  string
		count int
	}{
		{"input", report.Input},
		{"emotion_cutoff", report.EmotionCutoff},
		{"hook_gate", report.HookGate},
		{"duration_gate", report.DurationGate},
		{"psych_gate", report.PsychGate},
		{"semantic_dedup", report.Deduplicated},
		{"returned", report.Returned},
	}
	for _, s := range steps {
		m.StepCandidates.WithLabelValues(s.name).Add(float64(s.count))
	}
	for _, capability := range report.Degraded {
		m.DegradedTotal.WithLabelValues(capability).Inc()
	}
	m.ClipsReturned.Observe(float64(report.Returned))
	m.MalformedTotal.Add(float64(report.Malformed))
}

// ObserveDurationWithExemplar observes value, linking it to the active trace when there is one
func (m *BusinessMetrics) ObserveDurationWithExemplar(ctx context.Context, hist *prometheus.HistogramVec, value float64, labels ...string) {
	observer := hist.WithLabelValues(labels...)
	if traceID := tracing.TraceIDFromContext(ctx); traceID != "" {
		if eo, ok := observer.(prometheus.ExemplarObserver); ok {
			eo.ObserveWithExemplar(value, prometheus.Labels{"trace_id": traceID})
			return
		}
	}
	observer.Observe(value)
}

// DatabaseMetrics exposes sql.DB pool statistics
type DatabaseMetrics struct {
	OpenConnections prometheus.Gauge
	InUse           prometheus.Gauge
	Idle            prometheus.Gauge
	WaitCount       prometheus.Gauge
}

// NewDatabaseMetrics registers the pool gauges with reg, or with the default
// registerer when reg is nil.
func NewDatabaseMetrics(namespace string, reg prometheus.Registerer) *DatabaseMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: "db", Name: name, Help: help})
	}
	return &DatabaseMetrics{
		OpenConnections: gauge("open_connections", "Established connections."),
		InUse:           gauge("in_use_connections", "Connections currently in use."),
		Idle:            gauge("idle_connections", "Idle connections."),
		WaitCount:       gauge("wait_count", "Total connections waited for."),
	}
}

// UpdateDBStats copies the current pool statistics into the gauges
func (m *DatabaseMetrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.OpenConnections.Set(float64(stats.OpenConnections))
	m.InUse.Set(float64(stats.InUse))
	m.Idle.Set(float64(stats.Idle))
	m.WaitCount.Set(float64(stats.WaitCount))
}
