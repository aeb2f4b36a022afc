package vectorstore

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. It backs tests and the last
// resort placeholder when no persistent store accepts writes.
type MemoryStore struct {
	mu          sync.RWMutex
	records     []Record
	fingerprint string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, k int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		matches = append(matches, Match{
			ID:     rec.ID,
			Chunk:  rec.Chunk,
			Score:  cosineSimilarity(vector, rec.Vector),
			Metric: MetricCosineSimilarity,
		})
	}
	return topK(matches, k), nil
}

func (s *MemoryStore) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Metric() Metric { return MetricCosineSimilarity }

func (s *MemoryStore) DeleteBySource(_ context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	removed := 0
	for _, rec := range s.records {
		if rec.Chunk.Source == source {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return removed, nil
}

func (s *MemoryStore) Fingerprint(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint, nil
}

func (s *MemoryStore) SetFingerprint(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprint = fingerprint
	return nil
}

func (s *MemoryStore) Dimension(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return 0, nil
	}
	return len(s.records[0].Vector), nil
}

func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.fingerprint = ""
	return nil
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ SourceDeleter = (*MemoryStore)(nil)
	_ Fingerprinter = (*MemoryStore)(nil)
	_ Dimensioner   = (*MemoryStore)(nil)
	_ Resetter      = (*MemoryStore)(nil)
)
