package psych

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/viralrank/internal/models"
)

const viralText = "Nobody tells you this shocking secret about making $10,000. Everyone thinks it's impossible, but here's the truth you need to know."

func TestScoreClipViralText(t *testing.T) {
	s := New(nil, 65)
	c := models.Candidate{
		Start:           0,
		End:             25,
		Duration:        25,
		Text:            viralText,
		EmotionAnalysis: &models.EmotionAnalysis{EmotionIntensity: 8.0},
	}

	got := s.ScoreClip(c)

	assert.Greater(t, got.PsychologicalScore, 50.0)
	assert.Greater(t, got.CuriosityScore, 5.0)
	assert.Equal(t, 8.0, got.EmotionScore)
	assert.Equal(t, 10.0, got.ContrarianScore)
	assert.InDelta(t, 74.33, got.PsychologicalScore, 0.01)
	assert.True(t, got.PassesThreshold)
	assert.Empty(t, got.Penalties)
	assert.Contains(t, got.Strengths, "High curiosity")
	assert.Contains(t, got.Weaknesses, "Low call to action")
}

func TestScoreClipPenalties(t *testing.T) {
	s := New(nil, 65)

	long := s.ScoreClip(models.Candidate{Text: viralText, Duration: 100,
		EmotionAnalysis: &models.EmotionAnalysis{EmotionIntensity: 8.0}})
	assert.InDelta(t, 64.33, long.PsychologicalScore, 0.01)
	assert.Contains(t, long.Penalties, "Too long (>60s)")
	assert.False(t, long.PassesThreshold)

	flat := s.ScoreClip(models.Candidate{Text: "we walked to the shop", Duration: 20})
	// emotion defaults to 5.0: 0.2*5*10 - 5
	assert.InDelta(t, 5.0, flat.PsychologicalScore, 0.001)
	assert.Equal(t, 5.0, flat.EmotionScore)
	assert.Contains(t, flat.Penalties, "Weak curiosity gap")
}

func TestScoreClipBounds(t *testing.T) {
	s := New(nil, 0)

	tests := []models.Candidate{
		{},
		{Text: "", Duration: -3},
		{Text: "ok", Duration: 500},
		{Text: viralText + " Follow for more, comment below, share this and save this. Have you ever? Your 5 steps.", Duration: 30,
			EmotionAnalysis: &models.EmotionAnalysis{EmotionIntensity: 10}},
	}

	for _, c := range tests {
		got := s.ScoreClip(c)
		assert.GreaterOrEqual(t, got.PsychologicalScore, 0.0)
		assert.LessOrEqual(t, got.PsychologicalScore, 100.0)
		for _, v := range []float64{got.CuriosityScore, got.ContrarianScore, got.SpecificScore, got.RelatabilityScore, got.CTAScore} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 10.0)
		}
	}
}

func TestScoreAndFilterClips(t *testing.T) {
	s := New(nil, 65)
	candidates := []models.Candidate{
		{Start: 0, End: 25, Duration: 25, Text: viralText, EmotionAnalysis: &models.EmotionAnalysis{EmotionIntensity: 8.0}},
		{Start: 30, End: 50, Duration: 20, Text: "we walked to the shop"},
	}

	kept := s.ScoreAndFilterClips(candidates)

	require.Len(t, kept, 1)
	assert.Equal(t, 0.0, kept[0].Start)
	require.NotNil(t, kept[0].PsychologicalAnalysis)
	assert.Equal(t, kept[0].PsychologicalAnalysis.PsychologicalScore, kept[0].PsychologicalScore)
	assert.Nil(t, candidates[0].PsychologicalAnalysis)
}
