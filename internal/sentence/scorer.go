package sentence

import (
	"math"
	"regexp"
	"sort"

	"github.com/zombar/viralrank/internal/lexicon"
)

// Score is the viral-potential breakdown of one sentence.
type Score struct {
	Text       string  `json:"text"`
	Position   int     `json:"position"`
	Shock      float64 `json:"shock"`
	Confession float64 `json:"confession"`
	Hook       float64 `json:"hook"`
	Contrarian float64 `json:"contrarian"`
	Numeric    float64 `json:"numeric"`
	OpenLoop   float64 `json:"open_loop"`
	Overall    float64 `json:"overall_score"`
}

// Scorer rates individual sentences against the pattern tables.
type Scorer struct {
	tables *lexicon.Tables
}

// New creates a Scorer. A nil tables value uses lexicon.Default.
func New(tables *lexicon.Tables) *Scorer {
	if tables == nil {
		tables = lexicon.Default()
	}
	return &Scorer{tables: tables}
}

// ScoreSentence scores text as the sentence at the given position.
func (s *Scorer) ScoreSentence(text string, position int) Score {
	sc := Score{
		Text:       text,
		Position:   position,
		Shock:      subScore(s.tables.Shock, text),
		Confession: subScore(s.tables.Confession, text),
		Hook:       subScore(s.tables.Hook, text),
		Contrarian: subScore(s.tables.Contrarian, text),
		Numeric:    subScore(s.tables.Numeric, text),
		OpenLoop:   subScore(s.tables.OpenLoop, text),
	}

	overall := 0.25*sc.Shock +
		0.20*sc.Confession +
		0.25*sc.Hook +
		0.15*sc.Contrarian +
		0.10*sc.Numeric +
		0.05*sc.OpenLoop
	sc.Overall = math.Max(0, math.Min(10, overall*positionBonus(position)))

	return sc
}

// ScoreTranscriptSentences splits text into sentences and scores each one.
func (s *Scorer) ScoreTranscriptSentences(text string) []Score {
	sentences := lexicon.Sentences(text)
	scores := make([]Score, len(sentences))
	for i, sentence := range sentences {
		scores[i] = s.ScoreSentence(sentence, i)
	}
	return scores
}

// HighScoringSentences returns sentences whose overall score reaches threshold,
// best first. topN <= 0 returns every match.
func (s *Scorer) HighScoringSentences(text string, threshold float64, topN int) []Score {
	var high []Score
	for _, sc := range s.ScoreTranscriptSentences(text) {
		if sc.Overall >= threshold {
			high = append(high, sc)
		}
	}

	sort.SliceStable(high, func(i, j int) bool {
		return high[i].Overall > high[j].Overall
	})

	if topN > 0 && len(high) > topN {
		high = high[:topN]
	}
	return high
}

func subScore(patterns []*regexp.Regexp, text string) float64 {
	return math.Min(float64(lexicon.CountMatches(patterns, text))*3.0, 10.0)
}

// openers matter disproportionately
func positionBonus(position int) float64 {
	switch {
	case position == 0:
		return 1.5
	case position <= 2:
		return 1.2
	default:
		return 1.0
	}
}
