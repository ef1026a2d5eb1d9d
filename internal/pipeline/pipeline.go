package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/viralrank/internal/dedup"
	"github.com/zombar/viralrank/internal/emotion"
	"github.com/zombar/viralrank/internal/hook"
	"github.com/zombar/viralrank/internal/lexicon"
	"github.com/zombar/viralrank/internal/metadata"
	"github.com/zombar/viralrank/internal/models"
	"github.com/zombar/viralrank/internal/narrative"
	"github.com/zombar/viralrank/internal/psych"
)

const (
	// DefaultTopN is the result size when the caller passes a non-positive topN.
	DefaultTopN = 5

	emotionPercent = 15
	emotionFloor   = 10

	minDuration = 15.0
	maxDuration = 75.0
)

// Scorer is the optional LLM scoring collaborator. It receives the candidates
// that passed the psychological gate and returns them annotated with at least
// FinalScore. It is invoked at most once per run.
type Scorer interface {
	ScoreClips(ctx context.Context, candidates []models.Candidate) ([]models.Candidate, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, candidates []models.Candidate) ([]models.Candidate, error)

func (f ScorerFunc) ScoreClips(ctx context.Context, candidates []models.Candidate) ([]models.Candidate, error) {
	return f(ctx, candidates)
}

// MetadataGenerator produces publishing text for a scored candidate.
type MetadataGenerator interface {
	Generate(c models.Candidate) models.ViralMetadata
}

// Report summarises how a run reduced the candidate pool.
type Report = models.RunReport

// Result is the ranked output of a run.
type Result struct {
	Candidates []models.Candidate `json:"candidates"`
	Report     Report             `json:"report"`
}

// State is the orchestrator lifecycle position.
type State int

const (
	Idle State = iota
	Stage1Running
	Stage1Complete
	Stage2Running
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Stage1Running:
		return "stage1_running"
	case Stage1Complete:
		return "stage1_complete"
	case Stage2Running:
		return "stage2_running"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Pipeline is the two-stage ranking funnel. A Pipeline caches its embedder and
// tracks run state, so it must not be used from several goroutines at once;
// build one per worker instead.
type Pipeline struct {
	cfg    models.Config
	logger *slog.Logger
	tracer trace.Tracer

	emotion  *emotion.Analyzer
	hook     *hook.Analyzer
	arcs     *narrative.Detector
	psych    *psych.Scorer
	dedup    *dedup.Deduplicator
	metadata MetadataGenerator

	state State
}

// New validates cfg and builds a Pipeline with its analyzers.
func New(cfg models.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("github.com/zombar/viralrank/internal/pipeline")
	}
	if o.tables == nil {
		o.tables = lexicon.Default()
	}
	if o.metadata == nil {
		o.metadata = metadata.New(o.tables)
	}

	return &Pipeline{
		cfg:      cfg,
		logger:   o.logger,
		tracer:   o.tracer,
		emotion:  emotion.New(o.tables, o.sentiment),
		hook:     hook.New(o.tables),
		arcs:     narrative.New(o.tables, o.arcOptions...),
		psych:    psych.New(o.tables, cfg.PsychologicalThreshold),
		dedup:    dedup.New(o.embedder, cfg.SimilarityThreshold, o.logger),
		metadata: o.metadata,
	}, nil
}

// Config returns the thresholds the pipeline was built with.
func (p *Pipeline) Config() models.Config {
	return p.cfg
}

// State returns where the most recent run got to.
func (p *Pipeline) State() State {
	return p.state
}

// RunPipeline ranks candidates against the transcript and returns at most topN
// of them, best first. Empty candidates or transcript return ErrEmptyInput with
// an empty result. Scorer and embedding failures degrade the run and are
// recorded in the report instead of being returned.
func (p *Pipeline) RunPipeline(ctx context.Context, candidates []models.Candidate, segments []models.Segment, scorer Scorer, topN int) (Result, error) {
	started := time.Now()
	result := Result{
		Candidates: []models.Candidate{},
		Report:     Report{Input: len(candidates)},
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.Int("pipeline.candidates", len(candidates)),
		attribute.Int("pipeline.segments", len(segments)),
		attribute.Int("pipeline.top_n", topN),
	))
	defer span.End()

	p.state = Idle
	if len(candidates) == 0 || len(segments) == 0 {
		p.logger.InfoContext(ctx, "nothing to rank", "candidates", len(candidates), "segments", len(segments))
		span.AddEvent("empty input")
		return result, fmt.Errorf("%w: %d candidates, %d segments", ErrEmptyInput, len(candidates), len(segments))
	}

	for _, c := range candidates {
		if err := CheckCandidate(c); err != nil {
			result.Report.Malformed++
			p.logger.WarnContext(ctx, "analysing malformed candidate with defaults", "error", err)
		}
	}

	stage1 := p.stage1(ctx, candidates, segments, &result.Report)
	if len(stage1) == 0 {
		p.finish(ctx, span, &result, started)
		return result, nil
	}

	stage2 := p.stage2(ctx, stage1, scorer, &result.Report)

	if topN <= 0 {
		topN = DefaultTopN
	}
	if len(stage2) > topN {
		stage2 = stage2[:topN]
	}
	result.Candidates = stage2
	p.finish(ctx, span, &result, started)
	return result, nil
}

func (p *Pipeline) finish(ctx context.Context, span trace.Span, result *Result, started time.Time) {
	result.Report.Returned = len(result.Candidates)
	result.Report.DurationSeconds = time.Since(started).Seconds()
	p.state = Complete

	span.SetAttributes(
		attribute.Int("pipeline.returned", result.Report.Returned),
		attribute.StringSlice("pipeline.degraded", result.Report.Degraded),
	)
	p.logger.InfoContext(ctx, "pipeline complete",
		"input", result.Report.Input,
		"returned", result.Report.Returned,
		"degraded", result.Report.Degraded,
		"duration", time.Since(started))
}

// Stage1FastFilter runs the cheap heuristics: emotion cutoff, hook gate, arc
// enrichment and duration gate.
func (p *Pipeline) Stage1FastFilter(ctx context.Context, candidates []models.Candidate, segments []models.Segment) []models.Candidate {
	return p.stage1(ctx, candidates, segments, &Report{})
}

// Stage2DeepAnalysis runs the psychological gate, optional external scoring,
// semantic deduplication and metadata, then sorts by score.
func (p *Pipeline) Stage2DeepAnalysis(ctx context.Context, candidates []models.Candidate, scorer Scorer) []models.Candidate {
	return p.stage2(ctx, candidates, scorer, &Report{})
}

func (p *Pipeline) logStep(ctx context.Context, step string, before, after int) {
	ratio := 0.0
	if before > 0 {
		ratio = float64(after) / float64(before)
	}
	p.logger.InfoContext(ctx, "pipeline step",
		"step", step,
		"before", before,
		"after", after,
		"ratio", ratio)
}

// sortByScore orders candidates best first. Equal scores keep input order.
func sortByScore(candidates []models.Candidate, key models.ScoreKey) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return key.Value(candidates[i]) > key.Value(candidates[j])
	})
}

// emotionKeep is how many candidates survive the emotion cutoff: the top 15%
// rounded up, at least emotionFloor, at most n.
func emotionKeep(n int) int {
	keep := (n*emotionPercent + 99) / 100
	if keep < emotionFloor {
		keep = emotionFloor
	}
	if keep > n {
		keep = n
	}
	return keep
}
