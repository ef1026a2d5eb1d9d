package metrics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	_ "modernc.org/sqlite"

	"github.com/zombar/viralrank/internal/models"
)

func TestObserveRun(t *testing.T) {
	m := NewBusinessMetrics("viralrank", prometheus.NewRegistry())

	report := models.RunReport{
		Input:         40,
		Malformed:     2,
		EmotionCutoff: 10,
		HookGate:      6,
		DurationGate:  5,
		PsychGate:     3,
		Deduplicated:  3,
		Returned:      3,
		Degraded:      []string{"external_scorer"},
	}
	m.ObserveRun(context.Background(), report, StatusSuccess, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.StepCandidates.WithLabelValues("input")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.StepCandidates.WithLabelValues("hook_gate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.StepCandidates.WithLabelValues("returned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DegradedTotal.WithLabelValues("external_scorer")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MalformedTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
}

func TestObserveRunError(t *testing.T) {
	m := NewBusinessMetrics("viralrank", prometheus.NewRegistry())

	m.ObserveRun(context.Background(), models.RunReport{Input: 7}, StatusError, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(StatusError)))
	assert.Equal(t, 0, testutil.CollectAndCount(m.StepCandidates))
}

func TestObserveDurationWithExemplar(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics("viralrank", reg)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "run")
	defer span.End()

	m.ObserveDurationWithExemplar(ctx, m.RunDuration, 0.3, StatusSuccess)

	families, err := reg.Gather()
	require.NoError(t, err)

	var exemplarTrace string
	for _, mf := range families {
		if mf.GetName() != "viralrank_ranking_run_duration_seconds" {
			continue
		}
		for _, b := range mf.GetMetric()[0].GetHistogram().GetBucket() {
			if ex := b.GetExemplar(); ex != nil {
				for _, lp := range ex.GetLabel() {
					if lp.GetName() == "trace_id" {
						exemplarTrace = lp.GetValue()
					}
				}
			}
		}
	}
	assert.Equal(t, span.SpanContext().TraceID().String(), exemplarTrace)
}

func TestDatabaseMetrics(t *testing.T) {
	m := NewDatabaseMetrics("viralrank", prometheus.NewRegistry())

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())

	m.UpdateDBStats(db)
	assert.Equal(t, float64(db.Stats().OpenConnections), testutil.ToFloat64(m.OpenConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpenConnections))
}
