package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/viralrank/internal/emotion"
	"github.com/zombar/viralrank/internal/models"
)

func (p *Pipeline) stage1(ctx context.Context, candidates []models.Candidate, segments []models.Segment, report *Report) []models.Candidate {
	ctx, span := p.tracer.Start(ctx, "pipeline.stage1", trace.WithAttributes(
		attribute.Int("stage.input", len(candidates)),
	))
	defer span.End()
	p.state = Stage1Running

	// emotion density ranking
	annotated := make([]models.Candidate, len(candidates))
	for i, c := range candidates {
		analysis := p.emotion.Analyze(c.Text)
		c.EmotionAnalysis = &analysis
		c.EmotionDensity = emotion.Density(analysis)
		annotated[i] = c
	}
	sort.SliceStable(annotated, func(i, j int) bool {
		return annotated[i].EmotionDensity > annotated[j].EmotionDensity
	})
	top := annotated[:emotionKeep(len(annotated))]
	report.EmotionCutoff = len(top)
	p.logStep(ctx, "emotion_cutoff", len(annotated), len(top))

	hooked := p.hook.FilterByHookQuality(top, segments, p.cfg.MinHookScore)
	report.HookGate = len(hooked)
	p.logStep(ctx, "hook_gate", len(top), len(hooked))

	enriched := p.arcs.EnhanceCandidatesWithArcs(hooked, segments)
	withArc := 0
	for _, c := range enriched {
		if c.HasNarrativeArc {
			withArc++
		}
	}
	p.logger.InfoContext(ctx, "pipeline step", "step", "narrative_arcs", "candidates", len(enriched), "with_arc", withArc)

	out := make([]models.Candidate, 0, len(enriched))
	for _, c := range enriched {
		if c.Duration >= minDuration && c.Duration <= maxDuration {
			out = append(out, c)
		}
	}
	report.DurationGate = len(out)
	p.logStep(ctx, "duration_gate", len(enriched), len(out))

	span.SetAttributes(attribute.Int("stage.output", len(out)))
	p.state = Stage1Complete
	return out
}

func (p *Pipeline) stage2(ctx context.Context, candidates []models.Candidate, scorer Scorer, report *Report) []models.Candidate {
	ctx, span := p.tracer.Start(ctx, "pipeline.stage2", trace.WithAttributes(
		attribute.Int("stage.input", len(candidates)),
	))
	defer span.End()
	p.state = Stage2Running

	passed := p.psych.ScoreAndFilterClips(candidates)
	report.PsychGate = len(passed)
	p.logStep(ctx, "psych_gate", len(candidates), len(passed))
	if len(passed) == 0 {
		span.SetAttributes(attribute.Int("stage.output", 0))
		return passed
	}

	key := models.ScorePsychological
	if p.cfg.UseLLMScoring && scorer != nil {
		scored, err := p.callScorer(ctx, scorer, passed)
		if err != nil {
			report.Degraded = append(report.Degraded, DegradedScorer)
			span.RecordError(err)
			p.logger.WarnContext(ctx, "external scorer failed, ranking by psychological score", "error", err)
		} else {
			passed = mergeScores(passed, scored)
			key = models.ScoreFinal
			p.logger.InfoContext(ctx, "external scorer applied", "candidates", len(passed))
		}
	}

	deduped, err := p.dedup.DeduplicateClips(ctx, passed, key)
	if err != nil {
		report.Degraded = append(report.Degraded, DegradedEmbedding)
		if !errors.Is(err, ErrEmbeddingUnavailable) {
			span.RecordError(err)
		}
	}
	report.Deduplicated = len(deduped)
	p.logStep(ctx, "semantic_dedup", len(passed), len(deduped))

	for i := range deduped {
		md := p.metadata.Generate(deduped[i])
		deduped[i].ViralMetadata = &md
	}

	sortByScore(deduped, key)

	span.SetAttributes(
		attribute.Int("stage.output", len(deduped)),
		attribute.String("stage.score_key", string(key)),
	)
	return deduped
}

// callScorer invokes the external scorer, converting a panic into an error.
func (p *Pipeline) callScorer(ctx context.Context, scorer Scorer, candidates []models.Candidate) (scored []models.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrExternalScorer, r)
		}
	}()

	in := make([]models.Candidate, len(candidates))
	copy(in, candidates)

	scored, err = scorer.ScoreClips(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalScorer, err)
	}
	return scored, nil
}

// mergeScores copies scorer annotations back onto candidates by (start, end).
// Candidates the scorer did not return keep their psychological score as final.
func mergeScores(candidates, scored []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	for i, c := range candidates {
		var match *models.Candidate
		for j := range scored {
			if scored[j].SameWindow(c) && scored[j].FinalScore != nil {
				match = &scored[j]
				break
			}
		}

		final := c.PsychologicalScore
		if match != nil {
			final = math.Max(0, math.Min(100, *match.FinalScore))
			c.Verdict = match.Verdict
			c.KeyStrengths = match.KeyStrengths
			c.KeyWeaknesses = match.KeyWeaknesses
		}
		c.FinalScore = &final
		out[i] = c
	}
	return out
}
