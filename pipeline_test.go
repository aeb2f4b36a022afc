package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fabfab/career-agent/advice"
	"github.com/fabfab/career-agent/chat"
	"github.com/fabfab/career-agent/config"
	"github.com/fabfab/career-agent/embeddings"
)

func offlineConfig(t *testing.T, llmURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		RAG: config.RAGConfig{
			DocumentsPath:  filepath.Join(dir, "docs"),
			IndexPath:      filepath.Join(dir, "index"),
			IndexBackend:   config.BackendSQLite,
			ChunkSize:      800,
			ChunkOverlap:   100,
			SearchK:        4,
			ScoreThreshold: 0.6,
		},
		Embeddings: config.EmbeddingConfig{Provider: config.ProviderLocal, Dimension: 128},
		LLM: config.LLMConfig{
			Provider:    config.ProviderOllama,
			Model:       "llama3",
			Temperature: 0.4,
			MaxTokens:   256,
			Timeout:     2 * time.Second,
		},
		OllamaHost: llmURL,
	}
}

func TestBuilderServesFallbackWhenModelFails(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer failing.Close()

	logger := log.New(io.Discard, "", 0)
	res := &resources{}
	defer res.Close()

	svc := chat.NewService(newBuilder(offlineConfig(t, failing.URL), logger, res), chat.WithLogger(logger))
	ctx := context.Background()

	answer, err := svc.Process(ctx, chat.Query{Text: "How should I prepare for an interview?"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if answer.Status != advice.StatusFallback || answer.PersonaUsed != advice.FallbackPersona {
		t.Fatalf("expected fallback answer, got %+v", answer)
	}
	if answer.Response != advice.FallbackFor("How should I prepare for an interview?") {
		t.Fatalf("unexpected fallback text: %q", answer.Response)
	}

	if h := svc.HealthCheck(ctx); h.Status != chat.HealthHealthy {
		t.Fatalf("expected healthy pipeline, got %+v", h)
	}
	if st := svc.Status(ctx); st.DocumentCount == 0 {
		t.Fatalf("expected seeded documents to be indexed, got %+v", st)
	}
}

func TestBuilderReusesPersistedIndex(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	cfg := offlineConfig(t, "http://127.0.0.1:1")
	ctx := context.Background()

	first := &resources{}
	svc := chat.NewService(newBuilder(cfg, logger, first), chat.WithLogger(logger))
	if r := svc.AddKnowledge(ctx, "Mentoring circles help new managers.", "mentoring.txt"); r.Status != advice.StatusSuccess {
		t.Fatalf("add knowledge: %+v", r)
	}
	before := svc.Status(ctx).DocumentCount
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := &resources{}
	defer second.Close()
	restarted := chat.NewService(newBuilder(cfg, logger, second), chat.WithLogger(logger))
	if err := restarted.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if after := restarted.Status(ctx).DocumentCount; after != before {
		t.Fatalf("expected persisted index with %d chunks, got %d", before, after)
	}
}

func TestEmbeddingDimension(t *testing.T) {
	ctx := context.Background()

	if dim, err := embeddingDimension(ctx, config.Config{Embeddings: config.EmbeddingConfig{Dimension: 64}}, nil); err != nil || dim != 64 {
		t.Fatalf("expected configured dimension, got %d, %v", dim, err)
	}
	if dim, err := embeddingDimension(ctx, config.Config{}, embeddings.NewHashEmbedder(32)); err != nil || dim != 32 {
		t.Fatalf("expected embedder dimension, got %d, %v", dim, err)
	}
}

func TestResourcesCloseInReverseOrder(t *testing.T) {
	var order []int
	res := &resources{}
	res.add(func() error { order = append(order, 1); return nil })
	res.add(func() error { order = append(order, 2); return errors.New("boom") })

	if err := res.Close(); err == nil {
		t.Fatal("expected close error to be reported")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("unexpected close order: %v", order)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}

func TestWatchDocumentsIndexesNewFiles(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	cfg := offlineConfig(t, "http://127.0.0.1:1")
	res := &resources{}
	defer res.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := chat.NewService(newBuilder(cfg, logger, res), chat.WithLogger(logger))
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	before := svc.Status(ctx).DocumentCount

	if err := watchDocuments(ctx, cfg.RAG.DocumentsPath, svc, logger); err != nil {
		t.Fatalf("watch: %v", err)
	}
	path := filepath.Join(cfg.RAG.DocumentsPath, "referrals.txt")
	if err := os.WriteFile(path, []byte("Ask former colleagues for referrals."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for svc.Status(ctx).DocumentCount != before+1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d chunks, got %d", before+1, svc.Status(ctx).DocumentCount)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestEmbedderName(t *testing.T) {
	if got := embedderName(config.ProviderLocal, "ignored"); got != config.ProviderLocal {
		t.Fatalf("unexpected local name %q", got)
	}
	if got := embedderName(config.ProviderOllama, "nomic-embed-text"); got != "ollama:nomic-embed-text" {
		t.Fatalf("unexpected ollama name %q", got)
	}
}
