package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/viralrank/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "test-model"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestScoreClips(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model          string            `json:"model"`
			ResponseFormat map[string]string `json:"response_format"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "json_object", req.ResponseFormat["type"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": `{"verdicts":[{"index":0,"final_score":72.5,"verdict":"solid","key_weaknesses":["slow start"]}]}`,
				},
			}},
		})
	})
	c := newTestClient(t, mux)

	scored, err := c.ScoreClips(context.Background(), []models.Candidate{{Start: 0, End: 20, Text: "clip"}})

	require.NoError(t, err)
	require.Len(t, scored, 1)
	require.NotNil(t, scored[0].FinalScore)
	assert.Equal(t, 72.5, *scored[0].FinalScore)
	assert.Equal(t, []string{"slow start"}, scored[0].KeyWeaknesses)
}

func TestScoreClipsServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	}))

	_, err := c.ScoreClips(context.Background(), []models.Candidate{{Text: "clip"}})
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// returned out of order on purpose
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float64{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float64{1, 0}},
			},
			"usage": map[string]any{"prompt_tokens": 2, "total_tokens": 2},
		})
	})
	c := newTestClient(t, mux)

	vectors, err := c.Embed(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, vectors)
}
