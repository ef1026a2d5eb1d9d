package models

import "time"

// Word is a sub-word timing record produced by the transcriber
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability,omitempty"`
}

// Segment is one transcript segment. Segments are read-only for a pipeline run.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Overlaps reports whether the segment intersects [start, end).
func (s Segment) Overlaps(start, end float64) bool {
	return s.End > start && s.Start < end
}

// Candidate is a time window proposed for publication as a short clip.
// Start, End, Text, Duration, SegmentCount and Type come from the segmenter;
// every other field is an annotation added by a pipeline stage.
type Candidate struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Duration     float64 `json:"duration"`
	Text         string  `json:"text"`
	SegmentCount int     `json:"segment_count,omitempty"`
	Type         string  `json:"type,omitempty"`

	// Stage 1
	EmotionAnalysis *EmotionAnalysis `json:"emotion_analysis,omitempty"`
	EmotionDensity  float64          `json:"emotion_density"`
	HookAnalysis    *HookAnalysis    `json:"hook_analysis,omitempty"`
	HookScore       float64          `json:"hook_score"`
	HasNarrativeArc bool             `json:"has_narrative_arc"`
	ArcScore        float64          `json:"arc_score"`
	ArcComplete     bool             `json:"arc_complete"`
	ArcOverlap      float64          `json:"arc_overlap"`

	// Stage 2
	PsychologicalAnalysis *PsychologicalAnalysis `json:"psychological_analysis,omitempty"`
	PsychologicalScore    float64                `json:"psychological_score"`
	FinalScore            *float64               `json:"final_score,omitempty"`
	Verdict               string                 `json:"verdict,omitempty"`
	KeyStrengths          []string               `json:"key_strengths,omitempty"`
	KeyWeaknesses         []string               `json:"key_weaknesses,omitempty"`
	ViralMetadata         *ViralMetadata         `json:"viral_metadata,omitempty"`
}

// SameWindow reports whether two candidates share the (start, end) identity.
func (c Candidate) SameWindow(o Candidate) bool {
	return c.Start == o.Start && c.End == o.End
}

// Sentiment holds lexicon polarity scores
type Sentiment struct {
	Pos      float64 `json:"pos"`
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Compound float64 `json:"compound"`
}

// NeutralSentiment is returned when no sentiment model is available.
var NeutralSentiment = Sentiment{Pos: 0, Neg: 0, Neu: 1, Compound: 0}

// EmotionAnalysis is the output of the emotion analyzer
type EmotionAnalysis struct {
	Sentiment         Sentiment          `json:"sentiment"`
	EmotionScores     map[string]float64 `json:"emotion_scores"`
	PrimaryEmotion    string             `json:"primary_emotion"`
	EmotionIntensity  float64            `json:"emotion_intensity"`
	Polarity          float64            `json:"polarity"`
	ViralTriggers     []string           `json:"viral_triggers"`
	ViralTriggerScore float64            `json:"viral_trigger_score"`
}

// HookAnalysis is the output of the hook window analyzer
type HookAnalysis struct {
	HookText         string   `json:"hook_text,omitempty"`
	HookScore        float64  `json:"hook_score"`
	HasDeathSignal   bool     `json:"has_death_signal"`
	HasStrongOpening bool     `json:"has_strong_opening"`
	FillerCount      int      `json:"filler_count"`
	PassesThreshold  bool     `json:"passes_threshold"`
	Issues           []string `json:"issues"`
	Strengths        []string `json:"strengths"`
	WordCount        int      `json:"word_count"`
}

// PsychologicalAnalysis is the output of the psychological scorer
type PsychologicalAnalysis struct {
	PsychologicalScore float64  `json:"psychological_score"`
	CuriosityScore     float64  `json:"curiosity_score"`
	EmotionScore       float64  `json:"emotion_score"`
	ContrarianScore    float64  `json:"contrarian_score"`
	SpecificScore      float64  `json:"specific_score"`
	RelatabilityScore  float64  `json:"relatability_score"`
	CTAScore           float64  `json:"cta_score"`
	PassesThreshold    bool     `json:"passes_threshold"`
	Penalties          []string `json:"penalties"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
}

// ViralMetadata is templated publishing text for a ranked clip
type ViralMetadata struct {
	Titles           []string `json:"titles"`
	Caption          string   `json:"caption"`
	Hashtags         []string `json:"hashtags"`
	Overlays         []string `json:"overlays"`
	BrollSuggestions []string `json:"broll_suggestions"`
}

// Run is a persisted ranking run with its results
type Run struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"` // queued, completed, failed
	Config    Config      `json:"config"`
	TopN      int         `json:"top_n"`
	Report    *RunReport  `json:"report,omitempty"`
	Error     string      `json:"error,omitempty"`
	Clips     []Candidate `json:"clips"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Run statuses
const (
	RunQueued    = "queued"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// RunReport summarises how the funnel reduced the candidate pool
type RunReport struct {
	Input           int      `json:"input"`
	Malformed       int      `json:"malformed"`
	EmotionCutoff   int      `json:"emotion_cutoff"`
	HookGate        int      `json:"hook_gate"`
	DurationGate    int      `json:"duration_gate"`
	PsychGate       int      `json:"psych_gate"`
	Deduplicated    int      `json:"deduplicated"`
	Returned        int      `json:"returned"`
	Degraded        []string `json:"degraded,omitempty"`
	DurationSeconds float64  `json:"duration_seconds"`
}
