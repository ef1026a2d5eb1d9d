package narrative

import (
	"math"
	"sort"
	"strings"

	"github.com/zombar/viralrank/internal/lexicon"
	"github.com/zombar/viralrank/internal/models"
)

const (
	DefaultMinWindow = 30.0
	DefaultMaxWindow = 90.0
	DefaultOverlap   = 15.0

	midWindow    = 60.0
	minArcScore  = 6.0
	matchRatio   = 0.5
	excerptLimit = 100

	hookPoints    = 3.0
	tensionPoints = 4.0
	payoffPoints  = 3.0
)

// Arc is a hook, tension, payoff structure found in a transcript window.
type Arc struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Hook     string  `json:"hook"`
	Tension  string  `json:"tension"`
	Payoff   string  `json:"payoff"`
	Score    float64 `json:"arc_score"`
	Complete bool    `json:"has_complete_arc"`
}

func (a Arc) overlaps(o Arc) bool {
	return a.Start < o.End && o.Start < a.End
}

// Detector scans transcripts for narrative arcs. It holds no state between calls.
type Detector struct {
	tables    *lexicon.Tables
	minWindow float64
	maxWindow float64
	overlap   float64
}

// Option configures a Detector.
type Option func(*Detector)

// WithWindows sets the smallest and largest window sizes in seconds.
func WithWindows(min, max float64) Option {
	return func(d *Detector) {
		d.minWindow = min
		d.maxWindow = max
	}
}

// WithOverlap sets how far the scan steps back after an arc, and forward after a miss.
func WithOverlap(overlap float64) Option {
	return func(d *Detector) {
		d.overlap = overlap
	}
}

// New creates a Detector. A nil tables value uses lexicon.Default.
func New(tables *lexicon.Tables, opts ...Option) *Detector {
	if tables == nil {
		tables = lexicon.Default()
	}
	d := &Detector{
		tables:    tables,
		minWindow: DefaultMinWindow,
		maxWindow: DefaultMaxWindow,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.overlap <= 0 {
		d.overlap = DefaultOverlap
	}
	if d.minWindow <= 0 {
		d.minWindow = DefaultMinWindow
	}
	if d.maxWindow < d.minWindow {
		d.maxWindow = d.minWindow
	}
	return d
}

// windowSizes lists the sizes to try at each position, largest first.
func (d *Detector) windowSizes() []float64 {
	sizes := []float64{d.maxWindow}
	if midWindow < d.maxWindow && midWindow > d.minWindow {
		sizes = append(sizes, midWindow)
	}
	if d.minWindow < d.maxWindow {
		sizes = append(sizes, d.minWindow)
	}
	return sizes
}

// DetectArcs returns the non-overlapping arcs in segments, best first.
func (d *Detector) DetectArcs(segments []models.Segment) []Arc {
	if len(segments) == 0 {
		return nil
	}

	start, end := segments[0].Start, segments[0].End
	for _, seg := range segments[1:] {
		start = math.Min(start, seg.Start)
		end = math.Max(end, seg.End)
	}

	var found []Arc
	sizes := d.windowSizes()
	pos := start
	for pos+d.minWindow <= end {
		advanced := false
		for _, size := range sizes {
			windowEnd := math.Min(pos+size, end)
			if windowEnd-pos < d.minWindow {
				continue
			}
			arc, ok := d.scoreWindow(segments, pos, windowEnd)
			if !ok {
				continue
			}
			found = append(found, arc)

			next := arc.End - d.overlap
			if next <= pos {
				next = pos + d.overlap
			}
			pos = next
			advanced = true
			break
		}
		if !advanced {
			pos += d.overlap
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Score > found[j].Score
	})

	var kept []Arc
	for _, arc := range found {
		clash := false
		for _, k := range kept {
			if arc.overlaps(k) {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, arc)
		}
	}
	return kept
}

func (d *Detector) scoreWindow(segments []models.Segment, start, end float64) (Arc, bool) {
	third := (end - start) / 3
	hook := windowText(segments, start, start+third)
	tension := windowText(segments, start+third, start+2*third)
	payoff := windowText(segments, start+2*third, end)

	var score float64
	hasHook := lexicon.AnyMatch(d.tables.HookIndicators, hook)
	hasTension := lexicon.AnyMatch(d.tables.TensionIndicators, tension)
	hasPayoff := lexicon.AnyMatch(d.tables.PayoffIndicators, payoff)
	if hasHook {
		score += hookPoints
	}
	if hasTension {
		score += tensionPoints
	}
	if hasPayoff {
		score += payoffPoints
	}
	if score < minArcScore {
		return Arc{}, false
	}

	return Arc{
		Start:    start,
		End:      end,
		Duration: end - start,
		Hook:     excerpt(hook),
		Tension:  excerpt(tension),
		Payoff:   excerpt(payoff),
		Score:    score,
		Complete: hasHook && hasTension && hasPayoff,
	}, true
}

// EnhanceCandidatesWithArcs detects arcs once and copies the best-matching
// arc onto each candidate. No candidate is removed.
func (d *Detector) EnhanceCandidatesWithArcs(candidates []models.Candidate, segments []models.Segment) []models.Candidate {
	return Enhance(candidates, d.DetectArcs(segments))
}

// Enhance annotates candidates with the arc covering the largest fraction of
// each candidate, when that fraction exceeds one half.
func Enhance(candidates []models.Candidate, arcs []Arc) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	for i, c := range candidates {
		c.HasNarrativeArc = false
		c.ArcScore = 0
		c.ArcComplete = false
		c.ArcOverlap = 0

		duration := c.End - c.Start
		if duration > 0 {
			var best *Arc
			bestRatio := 0.0
			for j := range arcs {
				shared := math.Min(c.End, arcs[j].End) - math.Max(c.Start, arcs[j].Start)
				if ratio := shared / duration; ratio > bestRatio {
					best, bestRatio = &arcs[j], ratio
				}
			}
			if best != nil && bestRatio > matchRatio {
				c.HasNarrativeArc = true
				c.ArcScore = best.Score
				c.ArcComplete = best.Complete
				c.ArcOverlap = bestRatio
			}
		}
		out[i] = c
	}
	return out
}

func windowText(segments []models.Segment, start, end float64) string {
	var parts []string
	for _, seg := range segments {
		if seg.Overlaps(start, end) {
			if text := strings.TrimSpace(seg.Text); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

func excerpt(text string) string {
	r := []rune(text)
	if len(r) <= excerptLimit {
		return text
	}
	return string(r[:excerptLimit]) + "..."
}
