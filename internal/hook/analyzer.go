package hook

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/zombar/viralrank/internal/lexicon"
	"github.com/zombar/viralrank/internal/models"
)

const (
	// DefaultDuration is the length of the hook window in seconds.
	DefaultDuration = 7.0

	passThreshold = 6.0
	deathCap      = 3.0
)

var digits = regexp.MustCompile(`\d+`)

// Analyzer rates the opening seconds of a clip.
type Analyzer struct {
	tables *lexicon.Tables
}

// New creates an Analyzer. A nil tables value uses lexicon.Default.
func New(tables *lexicon.Tables) *Analyzer {
	if tables == nil {
		tables = lexicon.Default()
	}
	return &Analyzer{tables: tables}
}

// ExtractHookWindow joins the text of every segment overlapping
// [clipStart, clipStart+duration). A non-positive duration uses DefaultDuration.
func ExtractHookWindow(segments []models.Segment, clipStart, duration float64) (string, []models.Segment) {
	if duration <= 0 {
		duration = DefaultDuration
	}
	end := clipStart + duration

	var matched []models.Segment
	var parts []string
	for _, seg := range segments {
		if !seg.Overlaps(clipStart, end) {
			continue
		}
		matched = append(matched, seg)
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), matched
}

// AnalyzeHook scores hook text on a 0-10 scale.
func (a *Analyzer) AnalyzeHook(text string) models.HookAnalysis {
	text = strings.TrimSpace(text)
	result := models.HookAnalysis{
		HookText:  text,
		Issues:    []string{},
		Strengths: []string{},
	}
	if text == "" {
		result.Issues = append(result.Issues, "Empty hook")
		return result
	}

	score := 5.0
	result.WordCount = len(lexicon.Words(text))

	result.HasDeathSignal = lexicon.AnyMatch(a.tables.DeathSignals, text)
	if result.HasDeathSignal {
		result.Issues = append(result.Issues, "Death signal: greeting or slow start")
	}

	result.HasStrongOpening = lexicon.AnyMatch(a.tables.StrongOpenings, text)
	if result.HasStrongOpening {
		score += 2.0
		result.Strengths = append(result.Strengths, "Strong opening")
	} else {
		score -= 1.0
		result.Issues = append(result.Issues, "Weak opening")
	}

	result.FillerCount = lexicon.CountMatches(a.tables.FillerPatterns, text)
	if result.FillerCount == 0 {
		score += 1.0
		result.Strengths = append(result.Strengths, "No filler words")
	} else {
		score -= 0.5 * float64(result.FillerCount)
		result.Issues = append(result.Issues, fmt.Sprintf("%d filler patterns", result.FillerCount))
	}

	if strings.Contains(text, "?") {
		score += 1.0
		result.Strengths = append(result.Strengths, "Opens with a question")
	}
	if digits.MatchString(text) {
		score += 0.5
		result.Strengths = append(result.Strengths, "Specific numbers")
	}

	switch {
	case result.WordCount < 5:
		score -= 1.0
		result.Issues = append(result.Issues, "Too short")
	case result.WordCount > 25:
		score -= 0.5
		result.Issues = append(result.Issues, "Too long")
	}

	if result.HasDeathSignal {
		score = math.Min(score, deathCap)
	}

	result.HookScore = math.Max(0, math.Min(10, score))
	result.PassesThreshold = result.HookScore >= passThreshold
	return result
}

// FilterByHookQuality annotates each candidate with its hook analysis and
// keeps those scoring at least minScore.
func (a *Analyzer) FilterByHookQuality(candidates []models.Candidate, segments []models.Segment, minScore float64) []models.Candidate {
	kept := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		text, _ := ExtractHookWindow(segments, c.Start, DefaultDuration)
		analysis := a.AnalyzeHook(text)
		c.HookAnalysis = &analysis
		c.HookScore = analysis.HookScore
		if c.HookScore >= minScore {
			kept = append(kept, c)
		}
	}
	return kept
}
