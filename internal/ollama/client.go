package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/zombar/viralrank/internal/llmscore"
	"github.com/zombar/viralrank/internal/models"
)

const (
	DefaultModel      = "gpt-oss:20b"
	DefaultEmbedModel = "nomic-embed-text"
	DefaultTimeout    = 360 * time.Second
)

// Client wraps the Ollama API client
type Client struct {
	client     *api.Client
	model      string
	embedModel string
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEmbedModel sets the model used by Embed.
func WithEmbedModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.embedModel = model
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a new Ollama client
func New(ollamaURL, model string, opts ...Option) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultModel
	}

	// Parse the base URL
	baseURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	c := &Client{
		client:     api.NewClient(baseURL, http.DefaultClient),
		model:      model,
		embedModel: DefaultEmbedModel,
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GenerateResponse generates a response from the LLM
func (c *Client) GenerateResponse(ctx context.Context, system, prompt string) (string, error) {
	c.logger.DebugContext(ctx, "ollama request", "model", c.model, "timeout", c.timeout)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  c.model,
		System: system,
		Prompt: prompt,
		Stream: new(bool), // false
	}

	var response strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "ollama generation failed", "model", c.model, "error", err)
		return "", fmt.Errorf("generation failed: %w", err)
	}

	result := strings.TrimSpace(response.String())
	c.logger.DebugContext(ctx, "ollama response", "model", c.model, "chars", len(result))
	return result, nil
}

// ScoreClips asks the model for a final score per clip
func (c *Client) ScoreClips(ctx context.Context, candidates []models.Candidate) ([]models.Candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	response, err := c.GenerateResponse(ctx, llmscore.SystemPrompt, llmscore.BuildPrompt(candidates))
	if err != nil {
		return nil, err
	}

	verdicts, err := llmscore.Parse(response)
	if err != nil {
		return nil, err
	}
	return llmscore.Apply(candidates, verdicts), nil
}

// Embed returns one embedding per text using the embedding model
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: c.embedModel,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding failed: got %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		v := make([]float64, len(e))
		for j, x := range e {
			v[j] = float64(x)
		}
		out[i] = v
	}
	return out, nil
}

// Heartbeat checks that the server is reachable
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.client.Heartbeat(ctx)
}
