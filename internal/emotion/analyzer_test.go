package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zombar/viralrank/internal/models"
)

type fixedSentiment struct{ compound float64 }

func (f fixedSentiment) Polarity(string) models.Sentiment {
	return models.Sentiment{Compound: f.compound, Neu: 1 - f.compound}
}

func TestAnalyzeEmptyText(t *testing.T) {
	a := New(nil, nil)

	got := a.Analyze("")

	assert.Equal(t, "neutral", got.PrimaryEmotion)
	assert.Equal(t, models.NeutralSentiment, got.Sentiment)
	assert.Zero(t, got.EmotionIntensity)
	assert.Zero(t, got.ViralTriggerScore)
	assert.Equal(t, 0.5, got.Polarity)
	assert.Empty(t, got.ViralTriggers)
}

func TestAnalyzeCategoryScores(t *testing.T) {
	a := New(nil, Neutral{})

	// 11 words, 2 fear words
	got := a.Analyze("I was so scared and terrified walking home that night alone")

	assert.Equal(t, "fear", got.PrimaryEmotion)
	assert.InDelta(t, 2.0/11.0*100, got.EmotionScores["fear"], 0.001)
	assert.Zero(t, got.EmotionScores["joy"])
	for category, score := range got.EmotionScores {
		assert.GreaterOrEqual(t, score, 0.0, category)
	}
	assert.GreaterOrEqual(t, got.EmotionIntensity, 0.0)
	assert.LessOrEqual(t, got.EmotionIntensity, 10.0)
}

func TestAnalyzeSentimentFeedsIntensity(t *testing.T) {
	text := "The meeting is on Tuesday"

	flat := New(nil, fixedSentiment{0}).Analyze(text)
	strong := New(nil, fixedSentiment{-0.8}).Analyze(text)

	assert.Zero(t, flat.EmotionIntensity)
	assert.InDelta(t, 4.0, strong.EmotionIntensity, 0.001)
	assert.InDelta(t, 0.1, strong.Polarity, 0.001)
}

func TestViralTriggers(t *testing.T) {
	a := New(nil, Neutral{})

	got := a.Analyze("The secret truth nobody tells you: this is a scam and it's insane, you won't believe it")

	assert.Contains(t, got.ViralTriggers, "secret")
	assert.Contains(t, got.ViralTriggers, "you won't believe")
	assert.Equal(t, 10.0, got.ViralTriggerScore)
}

func TestEmotionDensity(t *testing.T) {
	a := New(nil, Neutral{})
	text := "This secret is insane"

	ea := a.Analyze(text)
	assert.Equal(t, (ea.EmotionIntensity+ea.ViralTriggerScore)/2, a.EmotionDensity(text))
	assert.Equal(t, Density(ea), a.EmotionDensity(text))
}

func TestDetectFillerWords(t *testing.T) {
	a := New(nil, nil)

	tests := []struct {
		name    string
		input   string
		count   int
		matched []string
	}{
		{"none", "Three steps to double your savings", 0, []string{}},
		{"repeated", "Um, so um, you know, it was um fine", 4, []string{"um", "you know"}},
		{"case insensitive", "Basically I mean it", 2, []string{"i mean", "basically"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, matched := a.DetectFillerWords(tt.input)
			assert.Equal(t, tt.count, count)
			assert.ElementsMatch(t, tt.matched, matched)
		})
	}
}

func TestAnalyzeEmotionalContrast(t *testing.T) {
	a := New(nil, Neutral{})

	assert.Zero(t, a.AnalyzeEmotionalContrast(nil))
	assert.Zero(t, a.AnalyzeEmotionalContrast([]string{"only one sentence"}))
	assert.Zero(t, a.AnalyzeEmotionalContrast([]string{"the table is brown", "the chair is wooden"}))

	contrast := a.AnalyzeEmotionalContrast([]string{
		"the table is brown",
		"scared terrified afraid",
	})
	assert.Greater(t, contrast, 0.0)
	assert.LessOrEqual(t, contrast, 10.0)
}

func TestVaderPolarity(t *testing.T) {
	v := NewVader()

	pos := v.Polarity("I love this, it is wonderful and amazing!")
	neg := v.Polarity("This is terrible, I hate it.")

	assert.Greater(t, pos.Compound, 0.0)
	assert.Less(t, neg.Compound, 0.0)
}
