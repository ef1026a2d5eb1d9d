package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/viralrank/internal/database"
	"github.com/zombar/viralrank/internal/metrics"
	"github.com/zombar/viralrank/internal/models"
	"github.com/zombar/viralrank/internal/pipeline"
	"github.com/zombar/viralrank/internal/queue"
	"github.com/zombar/viralrank/internal/tracing"
	"github.com/zombar/viralrank/pkg/logging"
)

const (
	dbTimeout      = 30 * time.Second
	maxRequestBody = 32 << 20
)

// Store is the run persistence the API needs
type Store interface {
	CreateRun(ctx context.Context, run *models.Run) error
	CompleteRun(ctx context.Context, id string, report models.RunReport, clips []models.Candidate) error
	FailRun(ctx context.Context, id, message string) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error)
	DeleteRun(ctx context.Context, id string) error
}

// Enqueuer hands ranking work to the queue
type Enqueuer interface {
	EnqueueRank(ctx context.Context, req queue.RankRequest) (string, error)
}

// Dependencies wires the handler to the rest of the service
type Dependencies struct {
	Store       Store
	Queue       Enqueuer // nil disables /api/jobs
	NewPipeline queue.PipelineFactory
	Scorer      pipeline.Scorer // nil ranks by psychological score only
	Defaults    models.Config
	TopN        int
	Metrics     *metrics.BusinessMetrics
	Gatherer    prometheus.Gatherer // nil serves the default registry
	Logger      *slog.Logger
}

// Handler handles HTTP requests
type Handler struct {
	deps   Dependencies
	logger *slog.Logger
	mux    *http.ServeMux
}

// rankRequest is the body of POST /api/rank and POST /api/jobs. Config
// fields that are present override the service defaults.
type rankRequest struct {
	Candidates []models.Candidate `json:"candidates"`
	Transcript []models.Segment   `json:"transcript"`
	Config     json.RawMessage    `json:"config,omitempty"`
	TopN       int                `json:"top_n,omitempty"`
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(deps Dependencies) http.Handler {
	h := newHandler(deps)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(h.mux)
}

func newHandler(deps Dependencies) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewBusinessMetrics("viralrank", prometheus.NewRegistry())
	}
	if deps.TopN <= 0 {
		deps.TopN = pipeline.DefaultTopN
	}
	if deps.NewPipeline == nil {
		deps.NewPipeline = func(cfg models.Config) (*pipeline.Pipeline, error) {
			return pipeline.New(cfg, pipeline.WithLogger(deps.Logger))
		}
	}

	h := &Handler{
		deps:   deps,
		logger: deps.Logger.With("component", "api"),
		mux:    http.NewServeMux(),
	}
	h.setupRoutes()
	return h
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	metricsHandler := promhttp.Handler()
	if h.deps.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true})
	}
	h.mux.Handle("GET /metrics", metricsHandler)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("POST /api/rank", h.handleRank)
	h.mux.HandleFunc("POST /api/jobs", h.handleEnqueue)
	h.mux.HandleFunc("GET /api/jobs/{id}", h.handleJobStatus)
	h.mux.HandleFunc("GET /api/runs", h.handleListRuns)
	h.mux.HandleFunc("GET /api/runs/{id}", h.handleGetRun)
	h.mux.HandleFunc("DELETE /api/runs/{id}", h.handleDeleteRun)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}, http.StatusOK)
}

// decodeRankRequest reads the body and resolves config and top N against the defaults
func (h *Handler) decodeRankRequest(w http.ResponseWriter, r *http.Request) (rankRequest, models.Config, int, error) {
	var req rankRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		return req, models.Config{}, 0, fmt.Errorf("invalid request body: %w", err)
	}

	cfg := h.deps.Defaults
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return req, cfg, 0, fmt.Errorf("invalid config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return req, cfg, 0, err
	}

	topN := req.TopN
	if topN <= 0 {
		topN = h.deps.TopN
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.Int("candidates.count", len(req.Candidates)),
		attribute.Int("segments.count", len(req.Transcript)),
		attribute.Int("top_n", topN),
	)
	return req, cfg, topN, nil
}

// handleRank ranks candidates synchronously and stores the run
func (h *Handler) handleRank(w http.ResponseWriter, r *http.Request) {
	req, cfg, topN, err := h.decodeRankRequest(w, r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.deps.NewPipeline(cfg)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	run := &models.Run{ID: uuid.NewString(), Config: cfg, TopN: topN}
	stored := h.storeRun(ctx, run)

	started := time.Now()
	result, err := p.RunPipeline(ctx, req.Candidates, req.Transcript, h.deps.Scorer, topN)
	status := metrics.StatusSuccess
	if errors.Is(err, pipeline.ErrEmptyInput) {
		status = metrics.StatusEmpty
	} else if err != nil {
		h.deps.Metrics.ObserveRun(ctx, result.Report, metrics.StatusError, time.Since(started))
		h.serverError(w, r, err)
		return
	}
	h.deps.Metrics.ObserveRun(ctx, result.Report, status, time.Since(started))

	if stored {
		dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		if err := h.deps.Store.CompleteRun(dbCtx, run.ID, result.Report, result.Candidates); err != nil {
			h.logger.WarnContext(ctx, "failed to store ranking results", "run_id", run.ID, "error", err)
		}
	}

	response := map[string]any{
		"run_id":     run.ID,
		"candidates": result.Candidates,
		"report":     result.Report,
	}
	if status == metrics.StatusEmpty {
		response["warning"] = err.Error()
	}
	respondJSON(w, response, http.StatusOK)
}

// storeRun records a run, reporting whether it was stored
func (h *Handler) storeRun(ctx context.Context, run *models.Run) bool {
	if h.deps.Store == nil {
		return false
	}
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := h.deps.Store.CreateRun(dbCtx, run); err != nil {
		h.logger.WarnContext(ctx, "failed to store run, ranking anyway", "run_id", run.ID, "error", err)
		return false
	}
	return true
}

// handleEnqueue queues a ranking job and returns its id immediately
func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if h.deps.Queue == nil || h.deps.Store == nil {
		respondError(w, "Job queue is not configured", http.StatusServiceUnavailable)
		return
	}

	req, cfg, topN, err := h.decodeRankRequest(w, r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	run := &models.Run{ID: uuid.NewString(), Status: models.RunQueued, Config: cfg, TopN: topN}
	tracing.SetSpanAttributes(ctx, attribute.String("run.id", run.ID))

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := h.deps.Store.CreateRun(dbCtx, run); err != nil {
		h.serverError(w, r, fmt.Errorf("failed to create run: %w", err))
		return
	}

	taskID, err := h.deps.Queue.EnqueueRank(ctx, queue.RankRequest{
		RunID:      run.ID,
		Candidates: req.Candidates,
		Segments:   req.Transcript,
		Config:     cfg,
		TopN:       topN,
	})
	if err != nil {
		if ferr := h.deps.Store.FailRun(dbCtx, run.ID, err.Error()); ferr != nil {
			h.logger.WarnContext(ctx, "failed to mark run failed", "run_id", run.ID, "error", ferr)
		}
		h.serverError(w, r, fmt.Errorf("failed to enqueue ranking: %w", err))
		return
	}

	logging.LogRequest(h.logger, r, "ranking job queued",
		slog.String("run_id", run.ID),
		slog.String("task_id", taskID),
		slog.Int("candidates", len(req.Candidates)),
	)
	respondJSON(w, map[string]any{
		"job_id":  run.ID,
		"task_id": taskID,
		"status":  models.RunQueued,
		"message": "Ranking queued for processing",
	}, http.StatusAccepted)
}

// handleJobStatus reports the state of a queued run
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, ok := h.loadRun(w, r, id)
	if !ok {
		return
	}

	response := map[string]any{
		"job_id":     id,
		"status":     run.Status,
		"created_at": run.CreatedAt,
		"updated_at": run.UpdatedAt,
	}
	switch run.Status {
	case models.RunCompleted:
		response["result"] = pipeline.Result{Candidates: run.Clips, Report: derefReport(run.Report)}
	case models.RunFailed:
		response["error"] = run.Error
	}
	respondJSON(w, response, http.StatusOK)
}

// handleListRuns lists runs newest first with pagination
func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.deps.Store == nil {
		respondError(w, "Run store is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 10
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()
	runs, err := h.deps.Store.ListRuns(ctx, limit, offset)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	respondJSON(w, runs, http.StatusOK)
}

// handleGetRun returns a run with its ranked clips
func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if run, ok := h.loadRun(w, r, r.PathValue("id")); ok {
		respondJSON(w, run, http.StatusOK)
	}
}

// handleDeleteRun deletes a run and its clips
func (h *Handler) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if h.deps.Store == nil {
		respondError(w, "Run store is not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()
	err := h.deps.Store.DeleteRun(ctx, r.PathValue("id"))
	switch {
	case errors.Is(err, database.ErrRunNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case err != nil:
		h.serverError(w, r, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request, id string) (*models.Run, bool) {
	if h.deps.Store == nil {
		respondError(w, "Run store is not configured", http.StatusServiceUnavailable)
		return nil, false
	}
	tracing.SetSpanAttributes(r.Context(), attribute.String("run.id", id))

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()
	run, err := h.deps.Store.GetRun(ctx, id)
	switch {
	case errors.Is(err, database.ErrRunNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
		return nil, false
	case err != nil:
		h.serverError(w, r, err)
		return nil, false
	}
	return run, true
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
	respondError(w, err.Error(), http.StatusInternalServerError)
}

func derefReport(report *models.RunReport) models.RunReport {
	if report == nil {
		return models.RunReport{}
	}
	return *report
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, map[string]string{"error": message}, statusCode)
}
