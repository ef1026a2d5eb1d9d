package pipeline

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/viralrank/internal/dedup"
	"github.com/zombar/viralrank/internal/emotion"
	"github.com/zombar/viralrank/internal/lexicon"
	"github.com/zombar/viralrank/internal/narrative"
)

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	tables     *lexicon.Tables
	sentiment  emotion.Sentiment
	embedder   dedup.Embedder
	metadata   MetadataGenerator
	arcOptions []narrative.Option
}

// WithLogger sets the logger used for per-step reduction logs.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithTables overrides the lexicon tables shared by every analyzer.
func WithTables(tables *lexicon.Tables) Option {
	return func(o *options) { o.tables = tables }
}

// WithSentiment sets the sentiment capability. Without it sentiment is neutral.
func WithSentiment(s emotion.Sentiment) Option {
	return func(o *options) { o.sentiment = s }
}

// WithEmbedder sets the embedding capability. Without it deduplication is a passthrough.
func WithEmbedder(e dedup.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithMetadata replaces the templated metadata generator.
func WithMetadata(g MetadataGenerator) Option {
	return func(o *options) { o.metadata = g }
}

// WithArcOptions tunes the narrative arc detector.
func WithArcOptions(opts ...narrative.Option) Option {
	return func(o *options) { o.arcOptions = append(o.arcOptions, opts...) }
}
