package vectorstore

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fabfab/career-agent/embeddings"
	"github.com/fabfab/career-agent/fault"
	"github.com/fabfab/career-agent/ingestion"
)

const (
	PlaceholderSource  = "system_init"
	PlaceholderContent = "Welcome to Catalyst Career AI. This is a sample document to initialize the system."

	defaultBatchSize = 64
	countProbeK      = 1000

	fingerprintSample = "embedder fingerprint sample"
)

// Health is the outcome of Initialize.
type Health string

const (
	HealthReady    Health = "ready"
	HealthDegraded Health = "degraded"
)

// ChunkLoader supplies the chunks an empty index is built from.
type ChunkLoader interface {
	Load(ctx context.Context) ([]ingestion.Chunk, error)
}

// Catalog mirrors index mutations into a secondary store. Failures are
// logged and never fail the index operation.
type Catalog interface {
	SyncSource(ctx context.Context, source string, records []Record) error
	DeleteSource(ctx context.Context, source string) error
}

type IndexOption func(*Index)

func WithLogger(logger *log.Logger) IndexOption {
	return func(i *Index) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func WithCatalog(catalog Catalog) IndexOption {
	return func(i *Index) { i.catalog = catalog }
}

func WithBatchSize(n int) IndexOption {
	return func(i *Index) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithPlaceholderDimension sets the vector width used for the placeholder
// record when the embedder is unavailable.
func WithPlaceholderDimension(n int) IndexOption {
	return func(i *Index) {
		if n > 0 {
			i.placeholderDim = n
		}
	}
}

// WithEmbedderName names the embedder in the fingerprint kept by the store.
// Without it the embedder's type name is used.
func WithEmbedderName(name string) IndexOption {
	return func(i *Index) {
		if name != "" {
			i.embedderName = name
		}
	}
}

// Index pairs a Store with the Embedder that produced its vectors.
type Index struct {
	mu             sync.RWMutex
	store          Store
	embedder       embeddings.Embedder
	embedderName   string
	catalog        Catalog
	logger         *log.Logger
	batchSize      int
	placeholderDim int

	ready    bool
	degraded bool
}

func NewIndex(store Store, embedder embeddings.Embedder, opts ...IndexOption) (*Index, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store not configured")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}

	idx := &Index{
		store:          store,
		embedder:       embedder,
		logger:         log.Default(),
		batchSize:      defaultBatchSize,
		placeholderDim: embeddings.DefaultHashDimension,
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.embedderName == "" {
		idx.embedderName = fmt.Sprintf("%T", embedder)
	}
	return idx, nil
}

// Initialize makes the index searchable. An index that already holds records
// is reused; otherwise it is built from loader. Any failure leaves a single
// placeholder record in place and reports HealthDegraded together with the
// cause.
func (i *Index) Initialize(ctx context.Context, loader ChunkLoader) (Health, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if deleter, ok := i.store.(SourceDeleter); ok {
		if n, err := deleter.DeleteBySource(ctx, PlaceholderSource); err == nil && n > 0 {
			i.logger.Printf("removed %d placeholder records from previous run", n)
		}
	}

	if n, err := i.store.Len(ctx); err == nil && n > 0 {
		mismatch := i.verifyStore(ctx)
		if mismatch == nil {
			i.logger.Printf("loaded existing vector store (%d chunks)", n)
			i.ready, i.degraded = true, false
			return HealthReady, nil
		}
		resetter, ok := i.store.(Resetter)
		if !ok {
			return i.degrade(ctx, fault.Dependency(fault.ComponentIndex, mismatch))
		}
		i.logger.Printf("rebuilding vector store: %v", mismatch)
		if err := resetter.Reset(ctx); err != nil {
			return i.degrade(ctx, fault.Dependency(fault.ComponentIndex, fmt.Errorf("reset vector store: %w", err)))
		}
	} else if err != nil {
		i.logger.Printf("failed to inspect existing vector store: %v", err)
	}

	i.logger.Printf("creating new vector store")
	if loader == nil {
		return i.degrade(ctx, fault.Dependency(fault.ComponentLoader, fmt.Errorf("no document loader configured")))
	}
	chunks, err := loader.Load(ctx)
	if err != nil {
		return i.degrade(ctx, fault.Dependency(fault.ComponentLoader, err))
	}
	if len(chunks) == 0 {
		return i.degrade(ctx, fault.Dependency(fault.ComponentLoader, fmt.Errorf("no documents loaded")))
	}

	records, err := i.embedChunks(ctx, chunks)
	if err != nil {
		return i.degrade(ctx, err)
	}
	if err := i.store.Add(ctx, records); err != nil {
		return i.degrade(ctx, fault.Dependency(fault.ComponentIndex, err))
	}

	i.ready, i.degraded = true, false
	i.logger.Printf("created vector store with %d chunks", len(records))
	i.saveFingerprint(ctx, i.fingerprint(len(records[0].Vector)))
	i.syncCatalog(ctx, records)
	return HealthReady, nil
}

func (i *Index) fingerprint(dim int) string {
	return fmt.Sprintf("%s/%d", i.embedderName, dim)
}

func (i *Index) saveFingerprint(ctx context.Context, fingerprint string) {
	fp, ok := i.store.(Fingerprinter)
	if !ok {
		return
	}
	if err := fp.SetFingerprint(ctx, fingerprint); err != nil {
		i.logger.Printf("failed to record index fingerprint: %v", err)
	}
}

// verifyStore checks that populated stores were built by the current
// embedder. It returns nil when the store matches or cannot be checked; a
// store without a fingerprint adopts the current one once its vector width
// matches.
func (i *Index) verifyStore(ctx context.Context) error {
	vectors, err := i.embedder.Embed(ctx, []string{fingerprintSample})
	if err != nil || len(vectors) != 1 || len(vectors[0]) == 0 {
		i.logger.Printf("could not verify existing vector store against the embedder: %v", err)
		return nil
	}
	dim := len(vectors[0])
	want := i.fingerprint(dim)

	if fp, ok := i.store.(Fingerprinter); ok {
		have, err := fp.Fingerprint(ctx)
		if err != nil {
			i.logger.Printf("could not read index fingerprint: %v", err)
		} else if have != "" {
			if have != want {
				return fmt.Errorf("index built by %s, embedder is %s", have, want)
			}
			return nil
		}
	}

	if d, ok := i.store.(Dimensioner); ok {
		stored, err := d.Dimension(ctx)
		if err != nil {
			i.logger.Printf("could not read stored vector dimension: %v", err)
		} else if stored > 0 && stored != dim {
			return fmt.Errorf("stored vectors have %d dimensions, embedder produces %d", stored, dim)
		}
	}
	i.saveFingerprint(ctx, want)
	return nil
}

func (i *Index) degrade(ctx context.Context, cause error) (Health, error) {
	i.logger.Printf("error initializing vector store: %v", cause)

	placeholder := Record{
		ID:    uuid.NewString(),
		Chunk: ingestion.Chunk{Content: PlaceholderContent, Source: PlaceholderSource},
	}
	if vectors, err := i.embedder.Embed(ctx, []string{PlaceholderContent}); err == nil && len(vectors) == 1 && len(vectors[0]) > 0 {
		placeholder.Vector = vectors[0]
	} else {
		placeholder.Vector = embeddings.HashVector(PlaceholderContent, i.placeholderDim)
	}

	if err := i.store.Add(ctx, []Record{placeholder}); err != nil {
		i.logger.Printf("failed to create placeholder vector store, keeping it in memory: %v", err)
		mem := NewMemoryStore()
		_ = mem.Add(ctx, []Record{placeholder})
		i.store = mem
	} else {
		i.logger.Printf("created placeholder vector store")
	}

	i.ready, i.degraded = true, true
	return HealthDegraded, cause
}

func (i *Index) embedChunks(ctx context.Context, chunks []ingestion.Chunk) ([]Record, error) {
	records := make([]Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += i.batchSize {
		end := start + i.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}
		vectors, err := i.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fault.Dependency(fault.ComponentEmbedding, err)
		}
		if len(vectors) != len(batch) {
			return nil, fault.Dependency(fault.ComponentEmbedding,
				fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(batch), len(vectors)))
		}
		for j, c := range batch {
			records = append(records, Record{ID: uuid.NewString(), Chunk: c, Vector: vectors[j]})
		}
	}
	return records, nil
}

// Add embeds chunks and appends them without rebuilding the index.
func (i *Index) Add(ctx context.Context, chunks []ingestion.Chunk) ([]Record, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	records, err := i.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.ready {
		return nil, fault.Dependency(fault.ComponentIndex, fmt.Errorf("index not initialized"))
	}
	if err := i.store.Add(ctx, records); err != nil {
		return nil, fault.Dependency(fault.ComponentIndex, err)
	}
	i.syncCatalog(ctx, records)
	return records, nil
}

// Search embeds query and returns the k closest records.
func (i *Index) Search(ctx context.Context, query string, k int) ([]Match, error) {
	vectors, err := i.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fault.Dependency(fault.ComponentEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fault.Dependency(fault.ComponentEmbedding, fmt.Errorf("expected 1 query embedding, got %d", len(vectors)))
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if !i.ready {
		return nil, fault.Dependency(fault.ComponentIndex, fmt.Errorf("index not initialized"))
	}
	matches, err := i.store.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fault.Dependency(fault.ComponentIndex, err)
	}
	return matches, nil
}

// Count reports the number of stored records, estimating with a wide probe
// search when the store cannot count.
func (i *Index) Count(ctx context.Context) (int, error) {
	i.mu.RLock()
	store := i.store
	i.mu.RUnlock()

	n, err := store.Len(ctx)
	if err == nil {
		return n, nil
	}
	i.logger.Printf("count failed, estimating with probe search: %v", err)

	probe := embeddings.HashVector("test", i.placeholderDim)
	if vectors, embedErr := i.embedder.Embed(ctx, []string{"test"}); embedErr == nil && len(vectors) == 1 {
		probe = vectors[0]
	}
	matches, searchErr := store.Search(ctx, probe, countProbeK)
	if searchErr != nil {
		return 0, fault.Dependency(fault.ComponentIndex, fmt.Errorf("count documents: %w", searchErr))
	}
	return len(matches), nil
}

// DeleteBySource removes every record of source. Stores without delete
// support log a warning and report zero removals.
func (i *Index) DeleteBySource(ctx context.Context, source string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	deleter, ok := i.store.(SourceDeleter)
	if !ok {
		i.logger.Printf("delete by source not supported by %T, skipping %s", i.store, source)
		return 0, nil
	}
	n, err := deleter.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fault.Dependency(fault.ComponentIndex, err)
	}
	if i.catalog != nil {
		if err := i.catalog.DeleteSource(ctx, source); err != nil {
			i.logger.Printf("catalog delete failed for %s: %v", source, err)
		}
	}
	i.logger.Printf("deleted %d chunks with source %s", n, source)
	return n, nil
}

func (i *Index) Metric() Metric {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.store.Metric()
}

func (i *Index) Ready() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ready
}

func (i *Index) Degraded() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.degraded
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if closer, ok := i.store.(Closer); ok {
		return closer.Close()
	}
	return nil
}

func (i *Index) syncCatalog(ctx context.Context, records []Record) {
	if i.catalog == nil || len(records) == 0 {
		return
	}
	bySource := make(map[string][]Record)
	for _, rec := range records {
		bySource[rec.Chunk.Source] = append(bySource[rec.Chunk.Source], rec)
	}
	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		if err := i.catalog.SyncSource(ctx, source, bySource[source]); err != nil {
			i.logger.Printf("catalog sync failed for %s: %v", source, err)
		}
	}
}
