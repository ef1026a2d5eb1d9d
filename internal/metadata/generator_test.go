package metadata

import (
	"strings"
	"testing"

	"github.com/zombar/viralrank/internal/models"
)

func TestKeywords(t *testing.T) {
	g := New(nil)

	got := g.Keywords("Budget budget BUDGET savings savings and the 2024 plan for you", 3)

	want := []string{"budget", "savings", "plan"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestGenerate(t *testing.T) {
	g := New(nil)
	c := models.Candidate{
		Text:            "Nobody tells you this secret about budgeting. Budgeting changed my savings forever.",
		EmotionAnalysis: &models.EmotionAnalysis{PrimaryEmotion: "curiosity"},
		HasNarrativeArc: true,
		ArcComplete:     true,
	}

	md := g.Generate(c)

	if len(md.Titles) != 3 {
		t.Errorf("expected 3 titles, got %d: %v", len(md.Titles), md.Titles)
	}
	if md.Titles[0] != "Nobody tells you this secret about budgeting" {
		t.Errorf("unexpected hook title %q", md.Titles[0])
	}
	if md.Titles[1] != "What Nobody Tells You About Budgeting" {
		t.Errorf("unexpected emotion title %q", md.Titles[1])
	}
	if !strings.HasSuffix(md.Caption, "Follow for more. Save this for later.") {
		t.Errorf("caption missing call to action: %q", md.Caption)
	}
	if len(md.Hashtags) == 0 || len(md.Hashtags) > maxHashtags {
		t.Errorf("expected 1-%d hashtags, got %d", maxHashtags, len(md.Hashtags))
	}
	if md.Hashtags[0] != "#budgeting" {
		t.Errorf("expected top keyword hashtag first, got %q", md.Hashtags[0])
	}
	seen := map[string]bool{}
	for _, h := range md.Hashtags {
		if seen[h] {
			t.Errorf("duplicate hashtag %q", h)
		}
		seen[h] = true
	}
	if len(md.Overlays) != 3 {
		t.Errorf("expected hook, arc and payoff overlays, got %v", md.Overlays)
	}
	if len(md.BrollSuggestions) == 0 {
		t.Error("expected b-roll suggestions")
	}
}

func TestGenerateEmptyCandidate(t *testing.T) {
	md := New(nil).Generate(models.Candidate{})

	if len(md.Titles) == 0 {
		t.Error("expected fallback title")
	}
	if md.Caption == "" {
		t.Error("expected caption")
	}
	if len(md.BrollSuggestions) != 1 {
		t.Errorf("expected fallback b-roll, got %v", md.BrollSuggestions)
	}
	if len(md.Overlays) != 0 {
		t.Errorf("expected no overlays, got %v", md.Overlays)
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := map[string]string{
		"Budget":     "budget",
		"don't":      "dont",
		"self-help!": "selfhelp",
	}
	for in, want := range tests {
		if got := normalizeTag(in); got != want {
			t.Errorf("normalizeTag(%q) = %q, want %q", in, got, want)
		}
	}
}
