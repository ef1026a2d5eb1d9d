package models

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when a threshold is outside its documented domain.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Config holds the ranking thresholds. It is owned by the caller and must not
// change while a pipeline run is in progress.
type Config struct {
	PsychologicalThreshold float64 `json:"psychological_threshold" yaml:"psychologicalThreshold"`
	SimilarityThreshold    float64 `json:"similarity_threshold" yaml:"similarityThreshold"`
	MinHookScore           float64 `json:"min_hook_score" yaml:"minHookScore"`
	UseLLMScoring          bool    `json:"use_llm_scoring" yaml:"useLlmScoring"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		PsychologicalThreshold: 65.0,
		SimilarityThreshold:    0.85,
		MinHookScore:           6.0,
		UseLLMScoring:          true,
	}
}

// Validate checks every threshold against its domain. NaN is outside every
// domain.
func (c Config) Validate() error {
	if !inRange(c.PsychologicalThreshold, 0, 100) {
		return fmt.Errorf("%w: psychological_threshold %.2f not in [0,100]", ErrInvalidConfig, c.PsychologicalThreshold)
	}
	if !inRange(c.SimilarityThreshold, 0, 1) {
		return fmt.Errorf("%w: similarity_threshold %.2f not in [0,1]", ErrInvalidConfig, c.SimilarityThreshold)
	}
	if !inRange(c.MinHookScore, 0, 10) {
		return fmt.Errorf("%w: min_hook_score %.2f not in [0,10]", ErrInvalidConfig, c.MinHookScore)
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// ScoreKey names the candidate field used to rank and deduplicate.
type ScoreKey string

const (
	ScoreFinal         ScoreKey = "final_score"
	ScorePsychological ScoreKey = "psychological_score"
)

// Value reads the keyed score from c. A missing final score reads as the
// psychological score.
func (k ScoreKey) Value(c Candidate) float64 {
	if k == ScoreFinal && c.FinalScore != nil {
		return *c.FinalScore
	}
	return c.PsychologicalScore
}
