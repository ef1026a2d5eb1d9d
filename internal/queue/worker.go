package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/viralrank/internal/metrics"
	"github.com/zombar/viralrank/internal/models"
	"github.com/zombar/viralrank/internal/pipeline"
)

// RunStore persists the outcome of a ranking task
type RunStore interface {
	CompleteRun(ctx context.Context, id string, report models.RunReport, clips []models.Candidate) error
	FailRun(ctx context.Context, id, message string) error
}

// PipelineFactory builds a fresh pipeline for one task. Pipelines are not
// shared between concurrently running tasks.
type PipelineFactory func(cfg models.Config) (*pipeline.Pipeline, error)

// Worker wraps the Asynq server for processing tasks
type Worker struct {
	server          *asynq.Server
	mux             *asynq.ServeMux
	store           RunStore
	newPipeline     PipelineFactory
	scorer          pipeline.Scorer
	concurrency     int
	logger          *slog.Logger
	tracer          trace.Tracer
	businessMetrics *metrics.BusinessMetrics
}

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
	Logger      *slog.Logger
	Metrics     *metrics.BusinessMetrics
}

// NewWorker creates a new queue worker. scorer may be nil, in which case runs
// rank by psychological score only.
func NewWorker(cfg WorkerConfig, store RunStore, newPipeline PipelineFactory, scorer pipeline.Scorer) *Worker {
	w := newWorker(cfg, store, newPipeline, scorer)

	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	serverCfg := asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueRanking: 1,
		},
		RetryDelayFunc:  retryDelay,
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)

			w.logger.Error("task processing error",
				"task_type", task.Type(),
				"error", err,
				"retry_count", retried,
				"max_retries", maxRetry,
			)
		}),
		Logger: newAsynqLogger(w.logger),
	}

	w.server = asynq.NewServer(redisOpt, serverCfg)
	return w
}

func newWorker(cfg WorkerConfig, store RunStore, newPipeline PipelineFactory, scorer pipeline.Scorer) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	businessMetrics := cfg.Metrics
	if businessMetrics == nil {
		businessMetrics = metrics.NewBusinessMetrics("viralrank", prometheus.NewRegistry())
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}

	w := &Worker{
		mux:             asynq.NewServeMux(),
		store:           store,
		newPipeline:     newPipeline,
		scorer:          scorer,
		concurrency:     cfg.Concurrency,
		logger:          logger.With("component", "worker"),
		tracer:          otel.Tracer("github.com/zombar/viralrank/internal/queue"),
		businessMetrics: businessMetrics,
	}
	w.registerHandlers()
	return w
}

// registerHandlers registers all task handlers with the worker
func (w *Worker) registerHandlers() {
	w.mux.HandleFunc(TypeRankCandidates, w.handleRankCandidates)
}

// Start starts the worker to begin processing tasks
func (w *Worker) Start() error {
	w.logger.Info("starting asynq worker",
		"concurrency", w.concurrency,
		"queue", QueueRanking,
		"llm_scorer", w.scorer != nil,
	)

	// Run is blocking - starts processing tasks
	if err := w.server.Run(w.mux); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the worker
func (w *Worker) Shutdown() {
	w.logger.Info("shutting down asynq worker")
	w.server.Shutdown()
}

// rankRetryDelays backs off for store and scorer outages:
// 30s, 1m, 2m, 5m, 10m
var rankRetryDelays = []time.Duration{
	30 * time.Second,
	1 * time.Minute,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	if task.Type() != TypeRankCandidates {
		return asynq.DefaultRetryDelayFunc(n, err, task)
	}
	if n < len(rankRetryDelays) {
		return rankRetryDelays[n]
	}
	return rankRetryDelays[len(rankRetryDelays)-1]
}

// asynqLogger routes asynq's internal logging through slog
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) asynqLogger {
	return asynqLogger{logger: logger.With("component", "asynq")}
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
