package metadata

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/zombar/viralrank/internal/lexicon"
	"github.com/zombar/viralrank/internal/models"
)

const (
	maxHashtags  = 8
	maxTitleLen  = 70
	overlayWords = 6
)

var platformTags = []string{"#shorts", "#viral", "#fyp"}

var emotionTitles = map[string]string{
	"joy":        "This Made My Whole Year: %s",
	"excitement": "The Most Insane Thing About %s",
	"surprise":   "I Did Not Expect This About %s",
	"anger":      "Why %s Makes Everyone Furious",
	"fear":       "The Scary Truth About %s",
	"sadness":    "The Hardest Lesson About %s",
	"curiosity":  "What Nobody Tells You About %s",
}

// Generator assembles templated publishing text for ranked clips.
type Generator struct {
	tables *lexicon.Tables
}

// New creates a Generator. A nil tables value uses lexicon.Default.
func New(tables *lexicon.Tables) *Generator {
	if tables == nil {
		tables = lexicon.Default()
	}
	return &Generator{tables: tables}
}

// Generate builds titles, caption, hashtags, overlays and b-roll ideas for c.
func (g *Generator) Generate(c models.Candidate) models.ViralMetadata {
	keywords := g.Keywords(c.Text, 5)
	hook := hookLine(c)

	topic := "This"
	if len(keywords) > 0 {
		topic = titleCase(keywords[0])
	}
	emotion := "curiosity"
	if c.EmotionAnalysis != nil && c.EmotionAnalysis.PrimaryEmotion != "neutral" {
		emotion = c.EmotionAnalysis.PrimaryEmotion
	}

	titles := []string{}
	if hook != "" {
		titles = append(titles, truncate(hook, maxTitleLen))
	}
	if tmpl, ok := emotionTitles[emotion]; ok {
		titles = append(titles, fmt.Sprintf(tmpl, topic))
	}
	titles = append(titles, fmt.Sprintf("%s: The Part Nobody Talks About", topic))

	caption := hook
	if caption != "" {
		caption += "\n\n"
	}
	caption += "Follow for more. Save this for later."

	hashtags := make([]string, 0, maxHashtags)
	seen := make(map[string]bool)
	add := func(tag string) {
		if len(hashtags) < maxHashtags && tag != "#" && !seen[tag] {
			seen[tag] = true
			hashtags = append(hashtags, tag)
		}
	}
	for _, kw := range keywords {
		add("#" + normalizeTag(kw))
	}
	add("#" + emotion)
	for _, tag := range platformTags {
		add(tag)
	}

	overlays := []string{}
	if words := strings.Fields(hook); len(words) > 0 {
		if len(words) > overlayWords {
			words = append(words[:overlayWords], "...")
		}
		overlays = append(overlays, strings.ToUpper(strings.Join(words, " ")))
	}
	if c.HasNarrativeArc {
		overlays = append(overlays, "WAIT FOR IT")
		if c.ArcComplete {
			overlays = append(overlays, "THE PAYOFF")
		}
	}

	broll := []string{}
	for i, kw := range keywords {
		if i == 3 {
			break
		}
		broll = append(broll, fmt.Sprintf("Close-up footage of %s", kw))
	}
	if len(broll) == 0 {
		broll = append(broll, "Speaker close-up with punch-in zoom")
	}

	return models.ViralMetadata{
		Titles:           titles,
		Caption:          caption,
		Hashtags:         hashtags,
		Overlays:         overlays,
		BrollSuggestions: broll,
	}
}

// Keywords returns the most frequent non-stop-words in text. Ties are broken
// alphabetically so output is stable.
func (g *Generator) Keywords(text string, limit int) []string {
	freq := make(map[string]int)
	for _, word := range lexicon.Words(text) {
		if len(word) > 2 && !g.tables.StopWords[word] && !isNumber(word) {
			freq[word]++
		}
	}

	words := make([]string, 0, len(freq))
	for word := range freq {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

func hookLine(c models.Candidate) string {
	if c.HookAnalysis != nil && c.HookAnalysis.HookText != "" {
		if s := lexicon.Sentences(c.HookAnalysis.HookText); len(s) > 0 {
			return s[0]
		}
	}
	if s := lexicon.Sentences(c.Text); len(s) > 0 {
		return s[0]
	}
	return ""
}

// normalizeTag lowercases tag and strips everything but letters and digits.
func normalizeTag(tag string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(tag) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
