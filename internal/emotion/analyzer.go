package emotion

import (
	"math"
	"strings"

	"github.com/zombar/viralrank/internal/lexicon"
	"github.com/zombar/viralrank/internal/models"
)

// Analyzer scores emotional charge and viral trigger presence in text.
type Analyzer struct {
	tables    *lexicon.Tables
	sentiment Sentiment
}

// New creates an Analyzer. A nil tables value uses lexicon.Default and a nil
// sentiment scorer falls back to Neutral.
func New(tables *lexicon.Tables, sentiment Sentiment) *Analyzer {
	if tables == nil {
		tables = lexicon.Default()
	}
	if sentiment == nil {
		sentiment = Neutral{}
	}
	return &Analyzer{tables: tables, sentiment: sentiment}
}

// Analyze performs the full emotion analysis of text.
func (a *Analyzer) Analyze(text string) models.EmotionAnalysis {
	words := lexicon.Words(text)

	result := models.EmotionAnalysis{
		Sentiment:      models.NeutralSentiment,
		EmotionScores:  make(map[string]float64, len(a.tables.EmotionOrder)),
		PrimaryEmotion: "neutral",
		ViralTriggers:  []string{},
	}
	if strings.TrimSpace(text) != "" {
		result.Sentiment = a.sentiment.Polarity(text)
	}

	var total, best float64
	for _, category := range a.tables.EmotionOrder {
		score := 0.0
		if len(words) > 0 {
			set := a.tables.EmotionWords[category]
			matched := 0
			for _, w := range words {
				if set[w] {
					matched++
				}
			}
			score = float64(matched) / float64(len(words)) * 100
		}
		result.EmotionScores[category] = score
		total += score
		if score > best {
			best = score
			result.PrimaryEmotion = category
		}
	}

	result.EmotionIntensity = clamp(total/2+math.Abs(result.Sentiment.Compound)*5, 0, 10)
	result.Polarity = clamp((result.Sentiment.Compound+1)/2, 0, 1)

	for _, trigger := range a.tables.ViralTriggers {
		if trigger.Pattern.MatchString(text) {
			result.ViralTriggers = append(result.ViralTriggers, trigger.Text)
		}
	}
	result.ViralTriggerScore = math.Min(float64(len(result.ViralTriggers))*2, 10)

	return result
}

// Density is the Stage 1 ranking key derived from an analysis.
func Density(ea models.EmotionAnalysis) float64 {
	return (ea.EmotionIntensity + ea.ViralTriggerScore) / 2
}

// EmotionDensity analyzes text and returns its density.
func (a *Analyzer) EmotionDensity(text string) float64 {
	return Density(a.Analyze(text))
}

// DetectFillerWords counts every filler occurrence and returns the distinct fillers found.
func (a *Analyzer) DetectFillerWords(text string) (int, []string) {
	count := 0
	matched := []string{}
	for _, filler := range a.tables.Fillers {
		n := len(filler.Pattern.FindAllStringIndex(text, -1))
		if n > 0 {
			count += n
			matched = append(matched, filler.Text)
		}
	}
	return count, matched
}

// AnalyzeEmotionalContrast returns the population variance of per-sentence
// emotion intensity, clamped to [0,10]. Fewer than two sentences have no contrast.
func (a *Analyzer) AnalyzeEmotionalContrast(sentences []string) float64 {
	if len(sentences) < 2 {
		return 0
	}

	intensities := make([]float64, len(sentences))
	var sum float64
	for i, s := range sentences {
		intensities[i] = a.Analyze(s).EmotionIntensity
		sum += intensities[i]
	}
	mean := sum / float64(len(intensities))

	var variance float64
	for _, v := range intensities {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(intensities))

	return clamp(variance, 0, 10)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
