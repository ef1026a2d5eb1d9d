package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zombar/viralrank/internal/dedup"
	"github.com/zombar/viralrank/internal/models"
)

var (
	// ErrEmptyInput is returned with an empty result when there are no
	// candidates or no transcript. It is not a failure.
	ErrEmptyInput = errors.New("empty input")

	// ErrMalformedCandidate marks a candidate missing text or a usable duration.
	// Malformed candidates are still analysed with default-filled values.
	ErrMalformedCandidate = errors.New("malformed candidate")

	// ErrExternalScorer wraps failures of the injected LLM scorer.
	ErrExternalScorer = errors.New("external scorer failed")

	ErrEmbeddingUnavailable = dedup.ErrEmbeddingUnavailable
	ErrInvalidConfig        = models.ErrInvalidConfig
)

// Degraded capability names recorded in Report.Degraded.
const (
	DegradedScorer    = "external_scorer"
	DegradedEmbedding = "semantic_dedup"
)

// CheckCandidate reports whether c carries the fields every analyzer expects.
func CheckCandidate(c models.Candidate) error {
	var missing []string
	if strings.TrimSpace(c.Text) == "" {
		missing = append(missing, "text")
	}
	if c.Duration <= 0 {
		missing = append(missing, "duration")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: [%.2f, %.2f] missing %s", ErrMalformedCandidate, c.Start, c.End, strings.Join(missing, ", "))
	}
	return nil
}
