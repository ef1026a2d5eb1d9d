package psych

import (
	"math"
	"regexp"

	"github.com/zombar/viralrank/internal/lexicon"
	"github.com/zombar/viralrank/internal/models"
)

const (
	neutralEmotion = 5.0

	maxDuration      = 60.0
	longPenalty      = 10.0
	weakCuriosity    = 3.0
	curiosityPenalty = 5.0

	strongSubScore = 7.0
	weakSubScore   = 3.0
)

// weights sum to 1; the weighted sum is scaled to 0-100
var weights = struct {
	curiosity, emotion, contrarian, specific, relatability, cta float64
}{0.25, 0.20, 0.20, 0.15, 0.10, 0.10}

// Scorer computes the 0-100 psychological score of a clip.
type Scorer struct {
	tables    *lexicon.Tables
	threshold float64
}

// New creates a Scorer gating at threshold. A nil tables value uses lexicon.Default.
func New(tables *lexicon.Tables, threshold float64) *Scorer {
	if tables == nil {
		tables = lexicon.Default()
	}
	return &Scorer{tables: tables, threshold: threshold}
}

// ScoreClip scores a single candidate. The emotion component reuses the
// candidate's emotion analysis when present.
func (s *Scorer) ScoreClip(c models.Candidate) models.PsychologicalAnalysis {
	text := c.Text
	pa := models.PsychologicalAnalysis{
		CuriosityScore:    subScore(s.tables.Curiosity, text),
		EmotionScore:      neutralEmotion,
		ContrarianScore:   subScore(s.tables.ContrarianFrames, text),
		SpecificScore:     subScore(s.tables.Specificity, text),
		RelatabilityScore: subScore(s.tables.Relatability, text),
		CTAScore:          subScore(s.tables.CTA, text),
		Penalties:         []string{},
		Strengths:         []string{},
		Weaknesses:        []string{},
	}
	if c.EmotionAnalysis != nil {
		pa.EmotionScore = c.EmotionAnalysis.EmotionIntensity
	}

	score := (weights.curiosity*pa.CuriosityScore +
		weights.emotion*pa.EmotionScore +
		weights.contrarian*pa.ContrarianScore +
		weights.specific*pa.SpecificScore +
		weights.relatability*pa.RelatabilityScore +
		weights.cta*pa.CTAScore) * 10

	if c.Duration > maxDuration {
		score -= longPenalty
		pa.Penalties = append(pa.Penalties, "Too long (>60s)")
	}
	if pa.CuriosityScore < weakCuriosity {
		score -= curiosityPenalty
		pa.Penalties = append(pa.Penalties, "Weak curiosity gap")
	}

	pa.PsychologicalScore = math.Max(0, math.Min(100, score))
	pa.PassesThreshold = pa.PsychologicalScore >= s.threshold

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"curiosity", pa.CuriosityScore},
		{"emotion", pa.EmotionScore},
		{"contrarian framing", pa.ContrarianScore},
		{"specificity", pa.SpecificScore},
		{"relatability", pa.RelatabilityScore},
		{"call to action", pa.CTAScore},
	} {
		switch {
		case f.value >= strongSubScore:
			pa.Strengths = append(pa.Strengths, "High "+f.name)
		case f.value < weakSubScore:
			pa.Weaknesses = append(pa.Weaknesses, "Low "+f.name)
		}
	}

	return pa
}

// ScoreAndFilterClips attaches the psychological analysis to every candidate
// and keeps those that pass the threshold.
func (s *Scorer) ScoreAndFilterClips(candidates []models.Candidate) []models.Candidate {
	kept := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		pa := s.ScoreClip(c)
		c.PsychologicalAnalysis = &pa
		c.PsychologicalScore = pa.PsychologicalScore
		if pa.PassesThreshold {
			kept = append(kept, c)
		}
	}
	return kept
}

func subScore(patterns []*regexp.Regexp, text string) float64 {
	return math.Min(float64(lexicon.CountMatches(patterns, text))/3.0*10.0, 10.0)
}
