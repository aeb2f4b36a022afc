// Package vectorstore persists chunk embeddings and answers nearest-neighbour
// queries over them.
package vectorstore

import (
	"context"
	"math"
	"sort"

	"github.com/fabfab/career-agent/ingestion"
)

// Metric names the convention a backend uses for Match.Score.
type Metric string

const (
	// MetricCosineSimilarity scores are in [-1, 1], higher is closer.
	MetricCosineSimilarity Metric = "cosine_similarity"
	// MetricCosineDistance scores are in [0, 2], lower is closer.
	MetricCosineDistance Metric = "cosine_distance"
	// MetricL2Distance scores are in [0, inf), lower is closer.
	MetricL2Distance Metric = "l2_distance"
)

type Record struct {
	ID     string
	Chunk  ingestion.Chunk
	Vector []float32
}

type Match struct {
	ID     string
	Chunk  ingestion.Chunk
	Score  float64
	Metric Metric
}

// Store is a vector backend. Search returns at most k matches ordered from
// closest to farthest.
type Store interface {
	Add(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Len(ctx context.Context) (int, error)
	Metric() Metric
}

// SourceDeleter is implemented by stores that can drop every record of a
// source document.
type SourceDeleter interface {
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// Fingerprinter is implemented by stores that remember which embedder
// produced their vectors. An empty fingerprint means unknown.
type Fingerprinter interface {
	Fingerprint(ctx context.Context) (string, error)
	SetFingerprint(ctx context.Context, fingerprint string) error
}

// Dimensioner reports the width of the stored vectors, 0 when empty.
type Dimensioner interface {
	Dimension(ctx context.Context) (int, error)
}

// Resetter is implemented by stores that can drop every record.
type Resetter interface {
	Reset(ctx context.Context) error
}

type Closer interface {
	Close() error
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// topK sorts matches by descending similarity and truncates to k.
func topK(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
