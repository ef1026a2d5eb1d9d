package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/zombar/viralrank/internal/models"
)

// Deduplicator collapses candidates whose texts are semantically near-identical.
type Deduplicator struct {
	embedder  Embedder
	threshold float64
	logger    *slog.Logger
}

// New creates a Deduplicator. A nil embedder behaves as Noop.
func New(embedder Embedder, threshold float64, logger *slog.Logger) *Deduplicator {
	if embedder == nil {
		embedder = Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{embedder: embedder, threshold: threshold, logger: logger}
}

// DeduplicateClips groups candidates at or above the similarity threshold and
// keeps the highest-scoring member of each group, in input order.
//
// When embedding fails the input is returned unchanged together with the error,
// so callers can continue with the full set.
func (d *Deduplicator) DeduplicateClips(ctx context.Context, candidates []models.Candidate, key models.ScoreKey) ([]models.Candidate, error) {
	if len(candidates) < 2 {
		return candidates, nil
	}
	if _, off := d.embedder.(Disabled); off {
		return candidates, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	vectors, err := d.embedder.Embed(ctx, texts)
	if err != nil {
		d.logger.Warn("semantic deduplication skipped", "error", err, "candidates", len(candidates))
		return candidates, fmt.Errorf("embed candidates: %w", err)
	}
	if len(vectors) != len(candidates) {
		d.logger.Warn("semantic deduplication skipped", "embeddings", len(vectors), "candidates", len(candidates))
		return candidates, fmt.Errorf("%w: got %d embeddings for %d candidates", ErrEmbeddingUnavailable, len(vectors), len(candidates))
	}

	grouped := make([]bool, len(candidates))
	keep := make([]bool, len(candidates))
	for i := range candidates {
		if grouped[i] {
			continue
		}
		grouped[i] = true
		best := i
		for j := i + 1; j < len(candidates); j++ {
			if grouped[j] {
				continue
			}
			if CosineSimilarity(vectors[i], vectors[j]) >= d.threshold {
				grouped[j] = true
				if key.Value(candidates[j]) > key.Value(candidates[best]) {
					best = j
				}
			}
		}
		keep[best] = true
	}

	out := make([]models.Candidate, 0, len(candidates))
	for i, c := range candidates {
		if keep[i] {
			out = append(out, c)
		}
	}

	d.logger.Debug("semantic deduplication",
		"before", len(candidates),
		"after", len(out),
		"threshold", d.threshold)
	return out, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero or their lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
