package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zombar/viralrank/internal/dedup"
	"github.com/zombar/viralrank/internal/models"
)

const viralText = "Nobody tells you this shocking secret about making $10,000. Everyone thinks it's impossible, but here's the truth you need to know."

// fixture returns five candidates, each backed by its own transcript segment:
// three that survive both stages, one greeting rejected by the hook gate and
// one too long for the duration gate.
func fixture() ([]models.Candidate, []models.Segment) {
	windows := []struct {
		start, duration float64
		text            string
	}{
		{0, 25, viralText},
		{40, 30, "Why does nobody talk about the secret fees banks charge you? Everyone thinks their account is free, but here's the truth: you lose $1,200 a year. Follow for more."},
		{100, 20, "Hey guys, welcome back to my channel. Today we talk about budgets and other stuff."},
		{150, 100, viralText},
		{300, 45, "I lost $40,000 in one night and nobody knows this secret. Everyone thinks trading is easy, but actually it's a lie. Have you ever wondered why? Comment below."},
	}

	var candidates []models.Candidate
	var segments []models.Segment
	for _, w := range windows {
		end := w.start + w.duration
		candidates = append(candidates, models.Candidate{
			Start: w.start, End: end, Duration: w.duration, Text: w.text, SegmentCount: 1, Type: "sentence",
		})
		segments = append(segments, models.Segment{Start: w.start, End: end, Text: w.text})
	}
	return candidates, segments
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(t *testing.T, cfg models.Config, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(cfg, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return p
}

// textEmbedder maps each distinct text in a call to its own one-hot vector.
type textEmbedder struct{}

func (textEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	index := map[string]int{}
	for _, t := range texts {
		if _, ok := index[t]; !ok {
			index[t] = len(index)
		}
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v := make([]float64, len(index))
		v[index[t]] = 1
		out[i] = v
	}
	return out, nil
}

func starts(candidates []models.Candidate) []float64 {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = c.Start
	}
	return out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Config)
	}{
		{"similarity above one", func(c *models.Config) { c.SimilarityThreshold = 1.5 }},
		{"negative psychological threshold", func(c *models.Config) { c.PsychologicalThreshold = -1 }},
		{"NaN min hook score", func(c *models.Config) { c.MinHookScore = math.NaN() }},
		{"NaN psychological threshold", func(c *models.Config) { c.PsychologicalThreshold = math.NaN() }},
		{"NaN similarity", func(c *models.Config) { c.SimilarityThreshold = math.NaN() }},
		{"infinite min hook score", func(c *models.Config) { c.MinHookScore = math.Inf(1) }},
		{"negative infinite similarity", func(c *models.Config) { c.SimilarityThreshold = math.Inf(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultConfig()
			tt.mutate(&cfg)

			_, err := New(cfg)

			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRunPipelineEmptyInput(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig())
	candidates, segments := fixture()

	for name, tc := range map[string]struct {
		candidates []models.Candidate
		segments   []models.Segment
	}{
		"no candidates": {nil, segments},
		"no transcript": {candidates, nil},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := p.RunPipeline(context.Background(), tc.candidates, tc.segments, nil, 5)
			assert.ErrorIs(t, err, ErrEmptyInput)
			assert.NotNil(t, res.Candidates)
			assert.Empty(t, res.Candidates)
		})
	}
}

func TestEmotionKeep(t *testing.T) {
	tests := map[int]int{0: 0, 5: 5, 10: 10, 66: 10, 67: 11, 100: 15, 200: 30}
	for n, want := range tests {
		assert.Equal(t, want, emotionKeep(n), "n=%d", n)
	}
}

func TestStage1DurationAndHookGates(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig())
	candidates, segments := fixture()

	out := p.Stage1FastFilter(context.Background(), candidates, segments)

	assert.ElementsMatch(t, []float64{0, 40, 300}, starts(out))
	for _, c := range out {
		assert.GreaterOrEqual(t, c.Duration, 15.0)
		assert.LessOrEqual(t, c.Duration, 75.0)
		require.NotNil(t, c.EmotionAnalysis)
		require.NotNil(t, c.HookAnalysis)
		assert.GreaterOrEqual(t, c.HookScore, 0.0)
		assert.LessOrEqual(t, c.HookScore, 10.0)
	}
	assert.Equal(t, Stage1Complete, p.State())
}

func TestStage1EmotionCutoff(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig())
	base, segments := fixture()

	var candidates []models.Candidate
	for i := 0; i < 25; i++ {
		candidates = append(candidates, base[i%len(base)])
	}

	res, err := p.RunPipeline(context.Background(), candidates, segments, nil, 5)

	require.NoError(t, err)
	assert.Equal(t, 25, res.Report.Input)
	assert.Equal(t, 10, res.Report.EmotionCutoff)
}

func TestRunPipelineRanks(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig())
	candidates, segments := fixture()

	res, err := p.RunPipeline(context.Background(), candidates, segments, nil, 5)

	require.NoError(t, err)
	assert.Equal(t, []float64{300, 0, 40}, starts(res.Candidates))
	for i, c := range res.Candidates {
		require.NotNil(t, c.PsychologicalAnalysis)
		require.NotNil(t, c.ViralMetadata)
		assert.Nil(t, c.FinalScore)
		assert.GreaterOrEqual(t, c.PsychologicalScore, 65.0)
		assert.LessOrEqual(t, c.PsychologicalScore, 100.0)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Candidates[i-1].PsychologicalScore, c.PsychologicalScore)
		}
	}
	assert.Equal(t, Complete, p.State())
	assert.Contains(t, res.Report.Degraded, DegradedEmbedding, "no embedder configured")
}

func TestRunPipelineDedupDisabledIsNotDegraded(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig(), WithEmbedder(dedup.Disabled{}))
	candidates, segments := fixture()

	res, err := p.RunPipeline(context.Background(), candidates, segments, nil, 5)

	require.NoError(t, err)
	assert.Len(t, res.Candidates, 3)
	assert.NotContains(t, res.Report.Degraded, DegradedEmbedding)
	assert.Equal(t, res.Report.PsychGate, res.Report.Deduplicated)
}

func TestRunPipelineTopN(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig())
	candidates, segments := fixture()

	res, err := p.RunPipeline(context.Background(), candidates, segments, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{300, 0}, starts(res.Candidates))
	assert.Equal(t, 2, res.Report.Returned)

	res, err = p.RunPipeline(context.Background(), candidates, segments, nil, 0)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 3, "non-positive topN falls back to the default")
}

func TestRunPipelineMonotonicShrinkage(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig(), WithEmbedder(textEmbedder{}))
	candidates, segments := fixture()

	res, err := p.RunPipeline(context.Background(), candidates, segments, nil, 10)
	require.NoError(t, err)

	r := res.Report
	counts := []int{r.Input, r.EmotionCutoff, r.HookGate, r.DurationGate, r.PsychGate, r.Deduplicated, r.Returned}
	for i := 1; i < len(counts); i++ {
		assert.LessOrEqual(t, counts[i], counts[i-1], "step %d grew", i)
	}
	assert.Equal(t, 4, r.HookGate)
	assert.Equal(t, 3, r.DurationGate)
	assert.Empty(t, r.Degraded)
}

func TestRunPipelineDeterministic(t *testing.T) {
	candidates, segments := fixture()

	first, err := newPipeline(t, models.DefaultConfig(), WithEmbedder(textEmbedder{})).
		RunPipeline(context.Background(), candidates, segments, nil, 5)
	require.NoError(t, err)
	second, err := newPipeline(t, models.DefaultConfig(), WithEmbedder(textEmbedder{})).
		RunPipeline(context.Background(), candidates, segments, nil, 5)
	require.NoError(t, err)

	assert.Equal(t, first.Candidates, second.Candidates)
}

func TestRunPipelineDeduplicates(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig(), WithEmbedder(textEmbedder{}))
	candidates, segments := fixture()
	candidates = append(candidates, models.Candidate{Start: 400, End: 425, Duration: 25, Text: viralText})
	segments = append(segments, models.Segment{Start: 400, End: 425, Text: viralText})

	res, err := p.RunPipeline(context.Background(), candidates, segments, nil, 10)

	require.NoError(t, err)
	assert.Equal(t, 4, res.Report.PsychGate)
	assert.Equal(t, 3, res.Report.Deduplicated)
	assert.Equal(t, []float64{300, 0, 40}, starts(res.Candidates))
}

func TestRunPipelineExternalScorer(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig())
	candidates, segments := fixture()

	calls := 0
	scorer := ScorerFunc(func(_ context.Context, in []models.Candidate) ([]models.Candidate, error) {
		calls++
		for i := range in {
			final := 100 - in[i].PsychologicalScore
			in[i].FinalScore = &final
			in[i].Verdict = "reviewed"
		}
		return in, nil
	})

	res, err := p.RunPipeline(context.Background(), candidates, segments, scorer, 5)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []float64{40, 0, 300}, starts(res.Candidates))
	for i, c := range res.Candidates {
		require.NotNil(t, c.FinalScore)
		assert.Equal(t, "reviewed", c.Verdict)
		if i > 0 {
			assert.GreaterOrEqual(t, *res.Candidates[i-1].FinalScore, *c.FinalScore)
		}
	}
}

func TestRunPipelineScorerFailureDegrades(t *testing.T) {
	candidates, segments := fixture()

	for name, scorer := range map[string]Scorer{
		"error": ScorerFunc(func(context.Context, []models.Candidate) ([]models.Candidate, error) {
			return nil, errors.New("timeout")
		}),
		"panic": ScorerFunc(func(context.Context, []models.Candidate) ([]models.Candidate, error) {
			panic("boom")
		}),
	} {
		t.Run(name, func(t *testing.T) {
			p := newPipeline(t, models.DefaultConfig())

			res, err := p.RunPipeline(context.Background(), candidates, segments, scorer, 5)

			require.NoError(t, err)
			assert.Contains(t, res.Report.Degraded, DegradedScorer)
			assert.Equal(t, []float64{300, 0, 40}, starts(res.Candidates))
			for _, c := range res.Candidates {
				assert.Nil(t, c.FinalScore)
			}
		})
	}
}

func TestRunPipelineScorerDisabled(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.UseLLMScoring = false
	p := newPipeline(t, cfg)
	candidates, segments := fixture()

	called := false
	scorer := ScorerFunc(func(_ context.Context, in []models.Candidate) ([]models.Candidate, error) {
		called = true
		return in, nil
	})

	_, err := p.RunPipeline(context.Background(), candidates, segments, scorer, 5)
	require.NoError(t, err)
	assert.False(t, called)
}

func TestMergeScores(t *testing.T) {
	high := 140.0
	candidates := []models.Candidate{
		{Start: 0, End: 20, PsychologicalScore: 70},
		{Start: 30, End: 50, PsychologicalScore: 66},
	}
	scored := []models.Candidate{
		{Start: 0, End: 20, FinalScore: &high, KeyStrengths: []string{"hook"}},
	}

	out := mergeScores(candidates, scored)

	require.Len(t, out, 2)
	assert.Equal(t, 100.0, *out[0].FinalScore, "scores are clamped")
	assert.Equal(t, []string{"hook"}, out[0].KeyStrengths)
	assert.Equal(t, 66.0, *out[1].FinalScore, "missing scores fall back to psychological")
	assert.Nil(t, candidates[0].FinalScore)
}

func TestMalformedCandidatesAreCounted(t *testing.T) {
	p := newPipeline(t, models.DefaultConfig())
	candidates, segments := fixture()
	candidates = append(candidates, models.Candidate{Start: 500}, models.Candidate{Start: 600, Text: "no duration"})

	res, err := p.RunPipeline(context.Background(), candidates, segments, nil, 5)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Report.Malformed)
	assert.Len(t, res.Candidates, 3)
}

func TestCheckCandidate(t *testing.T) {
	assert.NoError(t, CheckCandidate(models.Candidate{Text: "ok", Duration: 20}))
	assert.ErrorIs(t, CheckCandidate(models.Candidate{Duration: 20}), ErrMalformedCandidate)
	assert.ErrorIs(t, CheckCandidate(models.Candidate{Text: "ok"}), ErrMalformedCandidate)
}

func TestRunPipelineSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	p := newPipeline(t, models.DefaultConfig(), WithTracer(tp.Tracer("test")))
	candidates, segments := fixture()

	_, err := p.RunPipeline(context.Background(), candidates, segments, nil, 5)
	require.NoError(t, err)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"pipeline.stage1", "pipeline.stage2", "pipeline.run"}, names)
}
