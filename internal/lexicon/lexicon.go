package lexicon

import (
	"regexp"
	"strings"
	"sync"
)

// Phrase is a literal word or phrase with its word-boundary matcher.
type Phrase struct {
	Text    string
	Pattern *regexp.Regexp
}

// Tables holds every word list and pattern table shared by the analyzers.
// A Tables value is never modified after construction.
type Tables struct {
	// EmotionOrder fixes the iteration order of EmotionWords.
	EmotionOrder []string
	EmotionWords map[string]map[string]bool

	ViralTriggers []Phrase
	Fillers       []Phrase
	StopWords     map[string]bool

	// sentence scorer
	Shock      []*regexp.Regexp
	Confession []*regexp.Regexp
	Hook       []*regexp.Regexp
	Contrarian []*regexp.Regexp
	Numeric    []*regexp.Regexp
	OpenLoop   []*regexp.Regexp

	// hook window
	DeathSignals   []*regexp.Regexp
	StrongOpenings []*regexp.Regexp
	FillerPatterns []*regexp.Regexp

	// narrative arcs
	HookIndicators    []*regexp.Regexp
	TensionIndicators []*regexp.Regexp
	PayoffIndicators  []*regexp.Regexp

	// psychological scorer
	Curiosity        []*regexp.Regexp
	ContrarianFrames []*regexp.Regexp
	Specificity      []*regexp.Regexp
	Relatability     []*regexp.Regexp
	CTA              []*regexp.Regexp
}

var defaultTables = sync.OnceValue(build)

// Default returns the process-wide tables. Callers must treat the result as read-only.
func Default() *Tables {
	return defaultTables()
}

func build() *Tables {
	t := &Tables{
		EmotionOrder:  []string{"joy", "excitement", "surprise", "anger", "fear", "sadness", "curiosity"},
		EmotionWords:  make(map[string]map[string]bool),
		ViralTriggers: phrases(viralTriggers),
		Fillers:       phrases(fillerWords),
		StopWords:     wordSet(stopWords),

		Shock:      compile(shockPatterns),
		Confession: compile(confessionPatterns),
		Hook:       compile(hookPatterns),
		Contrarian: compile(contrarianPatterns),
		Numeric:    compile(numericPatterns),
		OpenLoop:   compile(openLoopPatterns),

		DeathSignals:   compile(deathSignalPatterns),
		StrongOpenings: compile(strongOpeningPatterns),
		FillerPatterns: compile(fillerPatterns),

		HookIndicators:    compile(hookIndicatorPatterns),
		TensionIndicators: compile(tensionIndicatorPatterns),
		PayoffIndicators:  compile(payoffIndicatorPatterns),

		Curiosity:        compile(curiosityPatterns),
		ContrarianFrames: compile(contrarianFramePatterns),
		Specificity:      compile(specificityPatterns),
		Relatability:     compile(relatabilityPatterns),
		CTA:              compile(ctaPatterns),
	}
	for category, words := range emotionWords {
		t.EmotionWords[category] = wordSet(words)
	}
	return t
}

// CountMatches returns how many patterns match text at least once.
func CountMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

// AnyMatch reports whether any pattern matches text.
func AnyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var (
	nonWord       = regexp.MustCompile(`[^\w\s']`)
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
)

// Words lowercases text and splits it into word tokens, keeping apostrophes.
func Words(text string) []string {
	text = nonWord.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(text)
	words := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// Sentences splits text on sentence-terminal punctuation and drops empty parts.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func compile(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func phrases(list []string) []Phrase {
	out := make([]Phrase, len(list))
	for i, p := range list {
		out[i] = Phrase{Text: p, Pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `\b`)}
	}
	return out
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
