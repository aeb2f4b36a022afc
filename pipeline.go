package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/fabfab/career-agent/advice"
	"github.com/fabfab/career-agent/chat"
	"github.com/fabfab/career-agent/config"
	"github.com/fabfab/career-agent/database"
	"github.com/fabfab/career-agent/embeddings"
	"github.com/fabfab/career-agent/ingestion"
	"github.com/fabfab/career-agent/knowledge"
	"github.com/fabfab/career-agent/llm"
	"github.com/fabfab/career-agent/persona"
	"github.com/fabfab/career-agent/retrieval"
	"github.com/fabfab/career-agent/vectorstore"
)

// resources collects what the builder opened so the process can release it
// on shutdown.
type resources struct {
	mu      sync.Mutex
	closers []func() error
}

func (r *resources) add(fn func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, fn)
}

func (r *resources) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// newBuilder wires the pipeline from cfg. Backend misconfiguration degrades
// the pipeline; only storage that cannot be opened at all fails the build.
func newBuilder(cfg config.Config, logger *log.Logger, res *resources) chat.Builder {
	return func(ctx context.Context) (*chat.Components, error) {
		loader, err := ingestion.NewLoader(cfg.RAG.DocumentsPath,
			ingestion.WithChunkSize(cfg.RAG.ChunkSize),
			ingestion.WithChunkOverlap(cfg.RAG.ChunkOverlap),
			ingestion.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("document loader: %w", err)
		}

		embedderID := embedderName(cfg.Embeddings.Provider, cfg.Embeddings.Model)
		embedder, err := embeddings.NewEmbedder(cfg)
		if err != nil {
			logger.Printf("embedding backend unavailable, using local hash embeddings: %v", err)
			embedder = embeddings.NewHashEmbedder(cfg.Embeddings.Dimension)
			embedderID = config.ProviderLocal
		}

		store, err := openStore(ctx, cfg, embedder, logger, res)
		if err != nil {
			return nil, err
		}

		indexOpts := []vectorstore.IndexOption{vectorstore.WithLogger(logger), vectorstore.WithEmbedderName(embedderID)}
		if cfg.Embeddings.Dimension > 0 {
			indexOpts = append(indexOpts, vectorstore.WithPlaceholderDimension(cfg.Embeddings.Dimension))
		}
		if catalog := openCatalog(ctx, cfg, logger, res); catalog != nil {
			indexOpts = append(indexOpts, vectorstore.WithCatalog(catalog))
		}
		index, err := vectorstore.NewIndex(store, embedder, indexOpts...)
		if err != nil {
			return nil, fmt.Errorf("knowledge index: %w", err)
		}

		llmClient, err := llm.NewClient(cfg)
		if err != nil {
			logger.Printf("generation backend unavailable, answers will use fallback guidance: %v", err)
			llmClient = nil
		}

		return &chat.Components{
			Index:      index,
			Documents:  loader,
			Retriever:  retrieval.New(index, retrieval.WithLogger(logger), retrieval.WithDefaults(cfg.RAG.SearchK, cfg.RAG.ScoreThreshold)),
			Classifier: persona.NewKeywordRouter(nil),
			Generator:  advice.NewGenerator(llmClient, advice.WithLogger(logger)),
		}, nil
	}
}

func openStore(ctx context.Context, cfg config.Config, embedder embeddings.Embedder, logger *log.Logger, res *resources) (vectorstore.Store, error) {
	switch cfg.RAG.IndexBackend {
	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		res.add(func() error { pool.Close(); return nil })

		dim, err := embeddingDimension(ctx, cfg, embedder)
		if err != nil {
			return nil, err
		}
		store, err := vectorstore.NewPostgresStore(ctx, pool, dim)
		if err != nil {
			return nil, fmt.Errorf("postgres vector store: %w", err)
		}
		logger.Printf("using postgres vector store (%d dimensions)", dim)
		return store, nil
	default:
		store, err := vectorstore.NewSQLiteStore(ctx, cfg.RAG.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("sqlite vector store: %w", err)
		}
		res.add(store.Close)
		logger.Printf("using sqlite vector store in %s", cfg.RAG.IndexPath)
		return store, nil
	}
}

// embedderName identifies the embedding model a persisted index was built
// with.
func embedderName(provider, model string) string {
	if provider == config.ProviderLocal {
		return config.ProviderLocal
	}
	return provider + ":" + embeddings.NormalizeModel(provider, model)
}

// embeddingDimension returns the configured dimension or asks the embedder.
func embeddingDimension(ctx context.Context, cfg config.Config, embedder embeddings.Embedder) (int, error) {
	if cfg.Embeddings.Dimension > 0 {
		return cfg.Embeddings.Dimension, nil
	}
	if sized, ok := embedder.(interface{ Dimension() int }); ok {
		return sized.Dimension(), nil
	}
	vectors, err := embedder.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return 0, fmt.Errorf("probe embedding dimension: empty vector")
	}
	return len(vectors[0]), nil
}

// openCatalog connects the optional Neo4j source catalogue. Failures are
// logged and the index runs without it.
func openCatalog(ctx context.Context, cfg config.Config, logger *log.Logger, res *resources) vectorstore.Catalog {
	if cfg.Neo4jURI == "" {
		return nil
	}
	driver, err := database.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		logger.Printf("neo4j catalog disabled: %v", err)
		return nil
	}
	res.add(func() error { return driver.Close(context.Background()) })
	logger.Printf("mirroring indexed sources to neo4j at %s", cfg.Neo4jURI)
	return knowledge.NewCatalog(driver)
}

// watchDocuments keeps the index in step with files added, edited or removed
// in dir until ctx is cancelled.
func watchDocuments(ctx context.Context, dir string, svc *chat.Service, logger *log.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create documents directory: %w", err)
	}
	watcher, err := ingestion.NewWatcher(logger)
	if err != nil {
		return err
	}
	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		watcher.Close()
		return err
	}

	logger.Printf("watching %s for document changes", dir)
	go func() {
		defer watcher.Close()
		for ev := range events {
			result := svc.SyncDocument(ctx, ev.Name, ev.Kind == ingestion.DocumentRemoved)
			if result.Status != advice.StatusSuccess {
				logger.Printf("document %s %s: %s", ev.Name, ev.Kind, result.Message)
			}
		}
	}()
	return nil
}
