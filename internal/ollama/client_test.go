package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zombar/viralrank/internal/models"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		ollamaURL     string
		model         string
		opts          []Option
		expectError   bool
		expectedModel string
		expectedEmbed string
	}{
		{
			name:          "default values",
			expectedModel: DefaultModel,
			expectedEmbed: DefaultEmbedModel,
		},
		{
			name:          "custom URL and models",
			ollamaURL:     "http://custom-ollama:11434",
			model:         "llama3.2",
			opts:          []Option{WithEmbedModel("mxbai-embed-large")},
			expectedModel: "llama3.2",
			expectedEmbed: "mxbai-embed-large",
		},
		{
			name:          "empty embed model keeps default",
			ollamaURL:     "http://localhost:11434",
			opts:          []Option{WithEmbedModel("")},
			expectedModel: DefaultModel,
			expectedEmbed: DefaultEmbedModel,
		},
		{
			name:        "invalid URL",
			ollamaURL:   "://invalid-url",
			model:       "test",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.ollamaURL, tt.model, tt.opts...)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client.model != tt.expectedModel {
				t.Errorf("Expected model %s, got %s", tt.expectedModel, client.model)
			}
			if client.embedModel != tt.expectedEmbed {
				t.Errorf("Expected embed model %s, got %s", tt.expectedEmbed, client.embedModel)
			}
			if client.timeout != DefaultTimeout {
				t.Errorf("Expected timeout %v, got %v", DefaultTimeout, client.timeout)
			}
		})
	}
}

// fakeOllama serves /api/generate with a fixed model response and /api/embed
// with 2-dimensional vectors.
func fakeOllama(t *testing.T, generated string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode generate request: %v", err)
		}
		if req["system"] == "" || req["system"] == nil {
			t.Error("expected a system prompt")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":    req["model"],
			"response": generated,
			"done":     true,
		})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode embed request: %v", err)
		}
		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			embeddings[i] = []float32{float32(i), 1}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":      req.Model,
			"embeddings": embeddings,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScoreClips(t *testing.T) {
	srv := fakeOllama(t, "Sure:\n[{\"index\":1,\"final_score\":88,\"verdict\":\"strong hook\"}]")
	client, err := New(srv.URL, "test-model")
	if err != nil {
		t.Fatal(err)
	}

	candidates := []models.Candidate{
		{Start: 0, End: 20, Duration: 20, Text: "first"},
		{Start: 30, End: 50, Duration: 20, Text: "second"},
	}
	scored, err := client.ScoreClips(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if scored[0].FinalScore != nil {
		t.Error("clip 0 was not scored by the model")
	}
	if scored[1].FinalScore == nil || *scored[1].FinalScore != 88 {
		t.Errorf("Expected clip 1 final score 88, got %v", scored[1].FinalScore)
	}
	if scored[1].Verdict != "strong hook" {
		t.Errorf("Expected verdict, got %q", scored[1].Verdict)
	}
}

func TestScoreClipsBadResponse(t *testing.T) {
	srv := fakeOllama(t, "I cannot help with that.")
	client, _ := New(srv.URL, "test-model")

	if _, err := client.ScoreClips(context.Background(), []models.Candidate{{Text: "x"}}); err == nil {
		t.Error("Expected error for a response without JSON")
	}
}

func TestScoreClipsEmpty(t *testing.T) {
	client, _ := New("http://127.0.0.1:1", "test-model")

	scored, err := client.ScoreClips(context.Background(), nil)
	if err != nil || len(scored) != 0 {
		t.Errorf("Expected no-op for empty input, got %v, %v", scored, err)
	}
}

func TestEmbed(t *testing.T) {
	srv := fakeOllama(t, "")
	client, _ := New(srv.URL, "", WithEmbedModel("nomic-embed-text"))

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("Expected 3 vectors, got %d", len(vectors))
	}
	if vectors[2][0] != 2 || vectors[2][1] != 1 {
		t.Errorf("Unexpected vector %v", vectors[2])
	}
}

func TestEmbedUnreachable(t *testing.T) {
	client, _ := New("http://127.0.0.1:1", "", WithTimeout(time.Second))

	if _, err := client.Embed(context.Background(), []string{"a"}); err == nil {
		t.Error("Expected error when the server is unreachable")
	}
}
