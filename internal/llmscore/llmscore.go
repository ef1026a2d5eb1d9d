package llmscore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zombar/viralrank/internal/models"
)

// ErrNoJSON is returned when a model response carries no parsable verdict list.
var ErrNoJSON = errors.New("no JSON verdicts found in response")

// SystemPrompt frames the model as a short-form video editor.
const SystemPrompt = `You are an experienced short-form video editor. You judge transcript excerpts for how likely they are to hold attention and be shared as 15-75 second vertical clips. You answer with JSON only.`

// Verdict is the model's judgement of one clip.
type Verdict struct {
	Index         int      `json:"index"`
	FinalScore    float64  `json:"final_score"`
	Verdict       string   `json:"verdict"`
	KeyStrengths  []string `json:"key_strengths"`
	KeyWeaknesses []string `json:"key_weaknesses"`
}

type promptClip struct {
	Index        int     `json:"index"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Duration     float64 `json:"duration"`
	Text         string  `json:"text"`
	Psych        float64 `json:"psychological_score"`
	Hook         float64 `json:"hook_score"`
	Arc          float64 `json:"arc_score"`
	HasNarrative bool    `json:"has_narrative_arc"`
}

// BuildPrompt serialises candidates into the scoring request.
func BuildPrompt(candidates []models.Candidate) string {
	clips := make([]promptClip, len(candidates))
	for i, c := range candidates {
		clips[i] = promptClip{
			Index:        i,
			Start:        c.Start,
			End:          c.End,
			Duration:     c.Duration,
			Text:         c.Text,
			Psych:        round1(c.PsychologicalScore),
			Hook:         round1(c.HookScore),
			Arc:          c.ArcScore,
			HasNarrative: c.HasNarrativeArc,
		}
	}
	payload, _ := json.MarshalIndent(clips, "", "  ")

	return fmt.Sprintf(`Score each clip below for viral potential as a standalone short video.

Consider:
- Does the first sentence stop the scroll?
- Is there a curiosity gap, tension or a surprising payoff?
- Does it make sense without the rest of the video?
- Is it specific and relatable?

The heuristic scores are hints, not answers.

Return a JSON array with one object per clip and these fields:
- index: the clip index
- final_score: 0-100
- verdict: one short sentence
- key_strengths: up to 3 short phrases
- key_weaknesses: up to 3 short phrases

Clips:
%s

Verdicts (JSON array):`, payload)
}

// Parse extracts the verdict list from a model response. It accepts a bare
// array, an array surrounded by prose, or an object wrapping the array.
func Parse(response string) ([]Verdict, error) {
	var verdicts []Verdict

	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), &verdicts); err != nil {
		return nil, fmt.Errorf("failed to parse verdicts JSON: %w", err)
	}
	return verdicts, nil
}

// Apply copies verdicts onto the candidates they index. Scores are clamped to
// [0,100] and out-of-range indexes are ignored. The input slice is not modified.
func Apply(candidates []models.Candidate, verdicts []Verdict) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)

	for _, v := range verdicts {
		if v.Index < 0 || v.Index >= len(out) {
			continue
		}
		score := math.Max(0, math.Min(100, v.FinalScore))
		out[v.Index].FinalScore = &score
		out[v.Index].Verdict = v.Verdict
		out[v.Index].KeyStrengths = v.KeyStrengths
		out[v.Index].KeyWeaknesses = v.KeyWeaknesses
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
