package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/zombar/viralrank/internal/llmscore"
	"github.com/zombar/viralrank/internal/models"
)

const (
	DefaultModel      = "gpt-4o-mini"
	DefaultEmbedModel = "text-embedding-3-small"
	DefaultTimeout    = 90 * time.Second
)

// Config selects the endpoint and models. BaseURL may point at any
// OpenAI-compatible server such as OpenRouter.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	MaxRetries int
}

// Client scores clips and embeds text through an OpenAI-compatible API.
type Client struct {
	client     openai.Client
	model      string
	embedModel string
	timeout    time.Duration
	logger     *slog.Logger
}

// New creates a client. An API key is required.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: API key is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		timeout:    cfg.Timeout,
		logger:     logger,
	}, nil
}

// ScoreClips asks the model for a final score per clip.
func (c *Client) ScoreClips(ctx context.Context, candidates []models.Candidate) ([]models.Candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := llmscore.BuildPrompt(candidates) +
		"\n\nWrap the array in an object: {\"verdicts\": [...]}"

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llmscore.SystemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       c.model,
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		c.logger.WarnContext(ctx, "openai scoring failed", "model", c.model, "error", err)
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	verdicts, err := llmscore.Parse(raw)
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "openai scoring complete", "model", c.model, "verdicts", len(verdicts))
	return llmscore.Apply(candidates, verdicts), nil
}

// Embed returns one embedding per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: c.embedModel,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding failed: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float64, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}
