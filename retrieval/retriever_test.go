package retrieval

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"

	"github.com/fabfab/career-agent/fault"
	"github.com/fabfab/career-agent/ingestion"
	"github.com/fabfab/career-agent/vectorstore"
)

type stubSearcher struct {
	matches []vectorstore.Match
	err     error
	gotK    int
}

func (s *stubSearcher) Search(_ context.Context, _ string, k int) ([]vectorstore.Match, error) {
	s.gotK = k
	if s.err != nil {
		return nil, s.err
	}
	if len(s.matches) > k {
		return s.matches[:k], nil
	}
	return s.matches, nil
}

var _ Searcher = (*stubSearcher)(nil)

func match(content string, score float64, metric vectorstore.Metric) vectorstore.Match {
	return vectorstore.Match{
		Chunk:  ingestion.Chunk{Content: content, Source: content + ".txt"},
		Score:  score,
		Metric: metric,
	}
}

func newRetriever(s Searcher) *Retriever {
	return New(s, WithLogger(log.New(io.Discard, "", 0)))
}

func TestRelevanceConventions(t *testing.T) {
	cases := []struct {
		score  float64
		metric vectorstore.Metric
		want   float64
	}{
		{0.8, vectorstore.MetricCosineSimilarity, 0.8},
		{-0.3, vectorstore.MetricCosineSimilarity, 0},
		{1.2, vectorstore.MetricCosineSimilarity, 1},
		{0.25, vectorstore.MetricCosineDistance, 0.75},
		{1.5, vectorstore.MetricCosineDistance, 0},
		{0, vectorstore.MetricL2Distance, 1},
		{1, vectorstore.MetricL2Distance, 0.5},
		{0.9, vectorstore.Metric("unknown"), 0},
	}
	for _, tc := range cases {
		if got := Relevance(tc.score, tc.metric); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Relevance(%v, %s) = %v, want %v", tc.score, tc.metric, got, tc.want)
		}
	}
}

func TestSearchWithScoreFiltersByThreshold(t *testing.T) {
	searcher := &stubSearcher{matches: []vectorstore.Match{
		match("a", 0.9, vectorstore.MetricCosineSimilarity),
		match("b", 0.7, vectorstore.MetricCosineSimilarity),
		match("c", 0.5, vectorstore.MetricCosineSimilarity),
	}}

	got := newRetriever(searcher).SearchWithScore(context.Background(), "q", 4, 0.6)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected results: %v", got)
	}
}

func TestSearchWithScoreFallsBackToTopTwo(t *testing.T) {
	searcher := &stubSearcher{matches: []vectorstore.Match{
		match("a", 0.5, vectorstore.MetricCosineDistance),
		match("b", 0.6, vectorstore.MetricCosineDistance),
		match("c", 0.9, vectorstore.MetricCosineDistance),
	}}
	r := newRetriever(searcher)

	got := r.SearchWithScore(context.Background(), "q", 4, 0.6)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected top-2 fallback, got %v", got)
	}

	rc, err := r.Retrieve(context.Background(), "q", 4, 0.6)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if rc.Relevant {
		t.Fatal("fallback snippets must not be marked relevant")
	}
	if len(rc.Snippets) != 2 {
		t.Fatalf("expected 2 fallback snippets, got %d", len(rc.Snippets))
	}
}

func TestSearchWithScoreSingleResultFallback(t *testing.T) {
	searcher := &stubSearcher{matches: []vectorstore.Match{match("only", 0.1, vectorstore.MetricCosineSimilarity)}}
	got := newRetriever(searcher).SearchWithScore(context.Background(), "q", 4, 0.6)
	if len(got) != 1 || got[0] != "only" {
		t.Fatalf("unexpected results: %v", got)
	}
}

func TestRetrieveMarksRelevantContext(t *testing.T) {
	searcher := &stubSearcher{matches: []vectorstore.Match{
		match("a", 0.1, vectorstore.MetricCosineDistance),
		match("a", 0.2, vectorstore.MetricCosineDistance),
	}}
	rc, err := newRetriever(searcher).Retrieve(context.Background(), "q", 4, 0.6)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !rc.Relevant || len(rc.Snippets) != 2 {
		t.Fatalf("unexpected context: %+v", rc)
	}
	if math.Abs(rc.Snippets[0].Relevance-0.9) > 1e-9 {
		t.Fatalf("expected relevance 0.9, got %v", rc.Snippets[0].Relevance)
	}
	if sources := rc.Sources(); len(sources) != 1 || sources[0] != "a.txt" {
		t.Fatalf("expected one distinct source, got %v", sources)
	}
}

func TestBackendErrorsDegradeToEmpty(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("connection refused")}
	r := newRetriever(searcher)

	if got := r.SearchWithScore(context.Background(), "q", 4, 0.6); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", got)
	}
	if got := r.Search(context.Background(), "q", 4); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", got)
	}

	rc, err := r.Retrieve(context.Background(), "q", 4, 0.6)
	if !fault.IsDependency(err, fault.ComponentIndex) {
		t.Fatalf("expected index dependency error, got %v", err)
	}
	if len(rc.Snippets) != 0 || rc.Relevant {
		t.Fatalf("expected empty context, got %+v", rc)
	}
}

func TestRetrieveKeepsEmbeddingErrorComponent(t *testing.T) {
	searcher := &stubSearcher{err: fault.Dependency(fault.ComponentEmbedding, context.DeadlineExceeded)}
	_, err := newRetriever(searcher).Retrieve(context.Background(), "q", 4, 0.6)
	if !fault.IsDependency(err, fault.ComponentEmbedding) {
		t.Fatalf("expected embedding dependency error, got %v", err)
	}
}

func TestSearchUsesDefaultK(t *testing.T) {
	searcher := &stubSearcher{}
	r := New(searcher, WithLogger(log.New(io.Discard, "", 0)), WithDefaults(6, 0.5))
	r.Search(context.Background(), "q", 0)
	if searcher.gotK != 6 {
		t.Fatalf("expected default k 6, got %d", searcher.gotK)
	}
	if r.Threshold() != 0.5 {
		t.Fatalf("expected threshold 0.5, got %v", r.Threshold())
	}
}

func TestSearchIsUnfiltered(t *testing.T) {
	searcher := &stubSearcher{matches: []vectorstore.Match{
		match("a", 0.1, vectorstore.MetricCosineSimilarity),
		match("b", 0.05, vectorstore.MetricCosineSimilarity),
		match("c", 0.01, vectorstore.MetricCosineSimilarity),
	}}
	if got := newRetriever(searcher).Search(context.Background(), "q", 4); len(got) != 3 {
		t.Fatalf("expected all 3 results, got %v", got)
	}
}
