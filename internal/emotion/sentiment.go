package emotion

import (
	"sync"

	"github.com/jonreiter/govader"

	"github.com/zombar/viralrank/internal/models"
)

// Sentiment scores the polarity of a piece of text.
type Sentiment interface {
	Polarity(text string) models.Sentiment
}

// Vader wraps govader's SentimentIntensityAnalyzer. It is safe for concurrent use.
type Vader struct {
	sia *govader.SentimentIntensityAnalyzer
	mu  sync.Mutex
}

// NewVader creates a VADER-backed sentiment scorer.
func NewVader() *Vader {
	return &Vader{sia: govader.NewSentimentIntensityAnalyzer()}
}

func (v *Vader) Polarity(text string) models.Sentiment {
	v.mu.Lock()
	scores := v.sia.PolarityScores(text)
	v.mu.Unlock()

	return models.Sentiment{
		Pos:      scores.Positive,
		Neg:      scores.Negative,
		Neu:      scores.Neutral,
		Compound: scores.Compound,
	}
}

// Neutral is used when no sentiment model is available.
type Neutral struct{}

func (Neutral) Polarity(string) models.Sentiment {
	return models.NeutralSentiment
}
