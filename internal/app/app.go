// Package app wires configuration to the ranking pipeline and its optional
// model backends.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zombar/viralrank/internal/config"
	"github.com/zombar/viralrank/internal/dedup"
	"github.com/zombar/viralrank/internal/emotion"
	"github.com/zombar/viralrank/internal/models"
	"github.com/zombar/viralrank/internal/ollama"
	"github.com/zombar/viralrank/internal/openai"
	"github.com/zombar/viralrank/internal/pipeline"
	"github.com/zombar/viralrank/internal/queue"
)

const heartbeatTimeout = 5 * time.Second

// Backends holds the collaborators shared by every pipeline the process builds.
type Backends struct {
	// Scorer is nil when no external scorer is configured or reachable.
	Scorer    pipeline.Scorer
	Sentiment emotion.Sentiment
	cfg       config.Config
	logger    *slog.Logger
}

// New builds the backends selected by cfg. A backend that cannot be built is
// logged and left out so runs degrade instead of failing.
func New(cfg config.Config, logger *slog.Logger) *Backends {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backends{cfg: cfg, logger: logger}

	switch cfg.Sentiment {
	case config.SentimentNeutral:
		b.Sentiment = emotion.Neutral{}
	default:
		b.Sentiment = emotion.NewVader()
	}

	scorer, err := newScorer(cfg, logger.With("component", "scorer"))
	if err != nil {
		logger.Warn("external scorer unavailable, ranking by psychological score",
			"backend", cfg.Scorer,
			"error", err,
		)
	} else if scorer != nil {
		logger.Info("external scorer configured", "backend", cfg.Scorer)
		b.Scorer = scorer
	}

	if cfg.Embedder == config.BackendNone {
		logger.Info("semantic dedup disabled")
	}
	return b
}

// Embedder returns the embedder for one pipeline. Configured backends are
// built on the first dedup of that pipeline and cached only for its lifetime,
// so a backend that was down for one run is retried by the next.
func (b *Backends) Embedder() dedup.Embedder {
	if b.cfg.Embedder == config.BackendNone {
		return dedup.Disabled{}
	}
	return dedup.NewLazy(func() (dedup.Embedder, error) {
		e, err := newEmbedder(b.cfg, b.logger.With("component", "embedder"))
		if err != nil {
			b.logger.Warn("embedding model unavailable, semantic dedup skipped for this run",
				"backend", b.cfg.Embedder,
				"error", err,
			)
		}
		return e, err
	})
}

// PipelineFactory returns a factory that builds a fresh pipeline per run with
// the shared backends attached.
func (b *Backends) PipelineFactory() queue.PipelineFactory {
	return func(cfg models.Config) (*pipeline.Pipeline, error) {
		return pipeline.New(cfg,
			pipeline.WithLogger(b.logger.With("component", "pipeline")),
			pipeline.WithSentiment(b.Sentiment),
			pipeline.WithEmbedder(b.Embedder()),
		)
	}
}

func newScorer(cfg config.Config, logger *slog.Logger) (pipeline.Scorer, error) {
	switch cfg.Scorer {
	case config.BackendNone:
		return nil, nil
	case config.BackendOpenAI:
		return newOpenAI(cfg, logger)
	case config.BackendOllama:
		return newOllama(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown scorer backend %q", cfg.Scorer)
	}
}

func newEmbedder(cfg config.Config, logger *slog.Logger) (dedup.Embedder, error) {
	switch cfg.Embedder {
	case config.BackendOpenAI:
		return newOpenAI(cfg, logger)
	case config.BackendOllama:
		client, err := newOllama(cfg, logger)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), heartbeatTimeout)
		defer cancel()
		if err := client.Heartbeat(ctx); err != nil {
			return nil, fmt.Errorf("ollama heartbeat: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder backend %q", cfg.Embedder)
	}
}

func newOllama(cfg config.Config, logger *slog.Logger) (*ollama.Client, error) {
	return ollama.New(cfg.Ollama.URL, cfg.Ollama.Model,
		ollama.WithEmbedModel(cfg.Ollama.EmbedModel),
		ollama.WithTimeout(cfg.Ollama.Timeout),
		ollama.WithLogger(logger),
	)
}

func newOpenAI(cfg config.Config, logger *slog.Logger) (*openai.Client, error) {
	return openai.New(openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		EmbedModel: cfg.OpenAI.EmbedModel,
		Timeout:    cfg.OpenAI.Timeout,
		MaxRetries: cfg.OpenAI.MaxRetries,
	}, logger)
}
