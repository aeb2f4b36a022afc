package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fabfab/career-agent/config"
)

func TestNewEmbedderDefaults(t *testing.T) {
	cfg := config.Config{
		Embeddings: config.EmbeddingConfig{
			Provider:  config.ProviderOllama,
			Model:     "nomic-embed-text",
			Dimension: 3,
		},
		OllamaHost: "http://localhost:11434",
	}

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		t.Fatalf("expected embedder, got error: %v", err)
	}

	if embedder == nil {
		t.Fatal("expected non-nil embedder")
	}
}

func TestNewEmbedderOpenAIMissingKey(t *testing.T) {
	cfg := config.Config{
		Embeddings: config.EmbeddingConfig{
			Provider:  config.ProviderOpenAI,
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
	}

	if _, err := NewEmbedder(cfg); err == nil {
		t.Fatal("expected error for missing OPENAI_API_KEY")
	}
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	cfg := config.Config{Embeddings: config.EmbeddingConfig{Provider: "gemini"}}
	if _, err := NewEmbedder(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNormalizeModel(t *testing.T) {
	cases := []struct {
		provider, in, want string
	}{
		{config.ProviderOpenAI, "3-small", "text-embedding-3-small"},
		{config.ProviderOpenAI, "ADA", "text-embedding-ada-002"},
		{config.ProviderOpenAI, "", "text-embedding-3-small"},
		{config.ProviderOpenAI, "openai/text-embedding-3-large", "text-embedding-3-large"},
		{config.ProviderOllama, "nomic", "nomic-embed-text"},
		{config.ProviderOllama, "models/custom-embed", "custom-embed"},
	}
	for _, tc := range cases {
		if got := NormalizeModel(tc.provider, tc.in); got != tc.want {
			t.Fatalf("NormalizeModel(%q, %q) = %q, want %q", tc.provider, tc.in, got, tc.want)
		}
	}
}

func TestOllamaEmbedderDecodesVectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(Options{OllamaHost: server.URL, Model: "nomic-embed-text", Dimension: 3})
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 3 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestOllamaEmbedderDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{0.1, 0.2}})
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(Options{OllamaHost: server.URL, Dimension: 3})
	if _, err := embedder.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestOllamaEmbedderReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(Options{OllamaHost: server.URL})
	if _, err := embedder.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestOllamaEmbedderTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	embedder := NewOllamaEmbedder(Options{OllamaHost: server.URL, Timeout: 50 * time.Millisecond})
	if _, err := embedder.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHashEmbedderIsDeterministicAndNormalised(t *testing.T) {
	embedder := NewHashEmbedder(64)
	first, err := embedder.Embed(context.Background(), []string{"Salary negotiation tips"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, _ := embedder.Embed(context.Background(), []string{"salary NEGOTIATION tips"})

	if len(first[0]) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(first[0]))
	}
	var norm float32
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatal("expected case-insensitive deterministic vectors")
		}
		norm += first[0][i] * first[0][i]
	}
	if norm < 0.999 || norm > 1.001 {
		t.Fatalf("expected unit vector, got squared norm %f", norm)
	}
}

func TestHashEmbedderHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(0).Embed(ctx, []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
