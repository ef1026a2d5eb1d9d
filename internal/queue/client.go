package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/viralrank/internal/models"
)

// Task type constants
const (
	TypeRankCandidates = "viralrank:rank_candidates"
)

// Queue names
const (
	QueueRanking = "ranking"
)

// RankCandidatesPayload is the payload of a ranking task
type RankCandidatesPayload struct {
	RunID      string             `json:"run_id"`
	Candidates []models.Candidate `json:"candidates"`
	Segments   string             `json:"segments"` // gzip + base64 encoded []models.Segment
	Config     models.Config      `json:"config"`
	TopN       int                `json:"top_n"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// RankRequest is what a caller hands to EnqueueRank
type RankRequest struct {
	RunID      string
	Candidates []models.Candidate
	Segments   []models.Segment
	Config     models.Config
	TopN       int
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client wraps the Asynq client for enqueueing tasks
type Client struct {
	client enqueuer
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	return &Client{
		client: asynq.NewClient(redisOpt),
	}
}

// EnqueueRank enqueues a ranking task. The run id doubles as the task id.
func (c *Client) EnqueueRank(ctx context.Context, req RankRequest) (string, error) {
	task, err := NewRankTask(ctx, req)
	if err != nil {
		return "", err
	}

	opts := []asynq.Option{
		asynq.TaskID(req.RunID),
		asynq.MaxRetry(5),                   // store and scorer outages
		asynq.Timeout(15 * time.Minute),     // LLM scoring of a long transcript
		asynq.Queue(QueueRanking),
		asynq.Retention(7 * 24 * time.Hour), // Keep completed tasks for 7 days
	}

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue rank task: %w", err)
	}
	return info.ID, nil
}

// NewRankTask builds the ranking task, carrying the active span so the worker
// can continue the trace.
func NewRankTask(ctx context.Context, req RankRequest) (*asynq.Task, error) {
	segments, err := compressJSON(req.Segments)
	if err != nil {
		return nil, fmt.Errorf("failed to compress segments: %w", err)
	}

	payload := RankCandidatesPayload{
		RunID:      req.RunID,
		Candidates: req.Candidates,
		Segments:   segments,
		Config:     req.Config,
		TopN:       req.TopN,
		EnqueuedAt: time.Now().UnixNano(), // Record enqueue time for queue wait metrics
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeRankCandidates),
			attribute.String("run.id", req.RunID),
			attribute.Int("candidates.count", len(req.Candidates)),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(TypeRankCandidates, payloadBytes), nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}
