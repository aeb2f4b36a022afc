package vectorstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/fabfab/career-agent/config"
	"github.com/fabfab/career-agent/database"
	"github.com/fabfab/career-agent/ingestion"
)

func TestPostgresStoreRanking(t *testing.T) {
	if os.Getenv("RUN_DB_INTEGRATION_TESTS") != "1" {
		t.Skip("set RUN_DB_INTEGRATION_TESTS=1 to run database integration checks")
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		t.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	dim := cfg.Embeddings.Dimension
	if dim <= 0 {
		t.Fatalf("invalid embedding dimension: %d", dim)
	}

	store, err := NewPostgresStore(ctx, pool, dim)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	source := "integration-" + uuid.NewString() + ".txt"
	t.Cleanup(func() {
		_, _ = store.DeleteBySource(ctx, source)
	})

	makeVector := func(x, y float32) []float32 {
		vec := make([]float32, dim)
		vec[0] = x
		if dim > 1 {
			vec[1] = y
		}
		return vec
	}

	chunkA := uuid.NewString()
	chunkB := uuid.NewString()
	if err := store.Add(ctx, []Record{
		{ID: chunkA, Chunk: ingestion.Chunk{Content: "Chunk A", Source: source, Index: 0}, Vector: makeVector(1, 0)},
		{ID: chunkB, Chunk: ingestion.Chunk{Content: "Chunk B", Source: source, Index: 1}, Vector: makeVector(0.2, 1)},
	}); err != nil {
		t.Fatalf("add records: %v", err)
	}

	results, err := store.Search(ctx, makeVector(0.9, 0.1), 2)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("expected at least 2 results, got %d", len(results))
	}
	if results[0].ID != chunkA {
		t.Fatalf("expected first result chunk %s, got %s", chunkA, results[0].ID)
	}
	if results[0].Metric != MetricCosineDistance || results[0].Score >= results[1].Score {
		t.Fatalf("expected ascending cosine distances, got %f then %f", results[0].Score, results[1].Score)
	}

	removed, err := store.DeleteBySource(ctx, source)
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 deletions, got %d (%v)", removed, err)
	}
}
