package queue

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/viralrank/internal/database"
	"github.com/zombar/viralrank/internal/metrics"
	"github.com/zombar/viralrank/internal/models"
	"github.com/zombar/viralrank/internal/pipeline"
	"github.com/zombar/viralrank/internal/tracing"
)

// handleRankCandidates runs the ranking pipeline for one queued run
func (w *Worker) handleRankCandidates(ctx context.Context, t *asynq.Task) error {
	var payload RankCandidatesPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		cause := fmt.Errorf("invalid task payload: %w", err)
		// the run id alone may still decode, so the run does not stay queued
		var header struct {
			RunID string `json:"run_id"`
		}
		if json.Unmarshal(t.Payload(), &header) == nil && header.RunID != "" {
			if ferr := w.store.FailRun(ctx, header.RunID, cause.Error()); ferr != nil {
				w.logger.Error("failed to record run failure", "run_id", header.RunID, "error", ferr)
			}
		}
		return fmt.Errorf("%w: %w", cause, asynq.SkipRetry)
	}

	runID := payload.RunID
	retryCount, _ := asynq.GetRetryCount(ctx)

	var queueWaitTime time.Duration
	if payload.EnqueuedAt > 0 {
		queueWaitTime = time.Since(time.Unix(0, payload.EnqueuedAt))
		w.businessMetrics.QueueWait.Observe(queueWaitTime.Seconds())
	}

	// continue the trace of the request that enqueued the task
	if remote, ok := tracing.RemoteContext(ctx, payload.TraceID, payload.SpanID); ok {
		ctx = remote
	}
	ctx, span := w.tracer.Start(ctx, "asynq.task.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("task.type", TypeRankCandidates),
			attribute.String("run.id", runID),
			attribute.Int("candidates.count", len(payload.Candidates)),
			attribute.Int("retry_count", retryCount),
			attribute.Float64("queue.wait_time_seconds", queueWaitTime.Seconds()),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		),
	)
	defer span.End()

	logger := w.logger.With("run_id", runID)
	logger.InfoContext(ctx, "ranking candidates",
		"candidates", len(payload.Candidates),
		"top_n", payload.TopN,
		"retry_count", retryCount,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	segments, err := decompressSegments(payload.Segments)
	if err != nil {
		return w.failPermanently(ctx, span, runID, fmt.Errorf("invalid transcript: %w", err))
	}

	p, err := w.newPipeline(payload.Config)
	if err != nil {
		return w.failPermanently(ctx, span, runID, err)
	}

	started := time.Now()
	result, err := p.RunPipeline(ctx, payload.Candidates, segments, w.scorer, payload.TopN)
	status := metrics.StatusSuccess
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		status = metrics.StatusEmpty
		logger.InfoContext(ctx, "nothing to rank", "error", err)
	case err != nil:
		w.businessMetrics.ObserveRun(ctx, result.Report, metrics.StatusError, time.Since(started))
		return w.failPermanently(ctx, span, runID, err)
	}
	w.businessMetrics.ObserveRun(ctx, result.Report, status, time.Since(started))

	if err := w.store.CompleteRun(ctx, runID, result.Report, result.Candidates); err != nil {
		span.RecordError(err)
		if isRetriableError(err) {
			logger.WarnContext(ctx, "retriable store error, will retry", "error", err, "retry_count", retryCount)
			return err // Let Asynq retry
		}
		span.SetStatus(codes.Error, "store failed")
		if errors.Is(err, database.ErrRunNotFound) {
			logger.WarnContext(ctx, "run was deleted before it completed", "error", err)
		}
		return fmt.Errorf("failed to store results: %w: %w", err, asynq.SkipRetry)
	}

	span.SetAttributes(
		attribute.Int("clips.returned", len(result.Candidates)),
		attribute.StringSlice("pipeline.degraded", result.Report.Degraded),
	)
	logger.InfoContext(ctx, "ranking completed",
		"returned", len(result.Candidates),
		"degraded", result.Report.Degraded,
		"duration", time.Since(started),
	)
	return nil
}

// failPermanently records the failure on the run and stops asynq retrying
func (w *Worker) failPermanently(ctx context.Context, span trace.Span, runID string, cause error) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	w.logger.ErrorContext(ctx, "ranking failed", "run_id", runID, "error", cause)

	if err := w.store.FailRun(ctx, runID, cause.Error()); err != nil {
		w.logger.ErrorContext(ctx, "failed to record run failure", "run_id", runID, "error", err)
	}
	return fmt.Errorf("%w: %w", cause, asynq.SkipRetry)
}

// isRetriableError determines if an error is retriable (connection/timeout)
// vs permanent (invalid input)
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	retriablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
		"too many requests",
		"too many connections",
		"database is locked",
		"context deadline exceeded",
		"i/o timeout",
		"no such host",
		"network is unreachable",
	}

	for _, pattern := range retriablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// compressJSON marshals v and returns it gzip compressed and base64 encoded
func compressJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)

	if _, err := gzWriter.Write(raw); err != nil {
		return "", fmt.Errorf("failed to write to gzip: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decompressSegments reverses compressJSON for a transcript
func decompressSegments(encoded string) ([]models.Segment, error) {
	if encoded == "" {
		return nil, nil
	}

	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	gzReader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	raw, err := io.ReadAll(gzReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read decompressed data: %w", err)
	}

	var segments []models.Segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal segments: %w", err)
	}
	return segments, nil
}
