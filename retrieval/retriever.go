// Package retrieval turns raw index matches into relevance-scored context
// snippets for a query.
package retrieval

import (
	"context"
	"errors"
	"log"
	"math"

	"github.com/fabfab/career-agent/fault"
	"github.com/fabfab/career-agent/vectorstore"
)

const (
	DefaultK         = 4
	DefaultThreshold = 0.6

	// fallbackSize is how many unfiltered results are kept when nothing
	// passes the threshold.
	fallbackSize = 2
)

var errNoSearcher = errors.New("no searcher configured")

// Searcher is satisfied by *vectorstore.Index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.Match, error)
}

type Result struct {
	Content   string
	Source    string
	Relevance float64
}

// Context is what the retriever hands to generation. Relevant is true only
// when at least one snippet met the threshold; fallback snippets leave it
// false.
type Context struct {
	Snippets []Result
	Relevant bool
}

// Sources lists the distinct snippet sources in order of first appearance.
func (c Context) Sources() []string {
	seen := make(map[string]bool, len(c.Snippets))
	var out []string
	for _, s := range c.Snippets {
		if s.Source == "" || seen[s.Source] {
			continue
		}
		seen[s.Source] = true
		out = append(out, s.Source)
	}
	return out
}

// Relevance maps a raw backend score to a higher-is-better value in [0,1].
func Relevance(score float64, metric vectorstore.Metric) float64 {
	switch metric {
	case vectorstore.MetricCosineSimilarity:
		return clamp(score)
	case vectorstore.MetricCosineDistance:
		return clamp(1 - score)
	case vectorstore.MetricL2Distance:
		if score < 0 {
			score = 0
		}
		return 1 / (1 + score)
	default:
		return 0
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

type Option func(*Retriever)

func WithLogger(logger *log.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithDefaults(k int, threshold float64) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.k = k
		}
		if threshold >= 0 {
			r.threshold = threshold
		}
	}
}

type Retriever struct {
	searcher  Searcher
	logger    *log.Logger
	k         int
	threshold float64
}

func New(searcher Searcher, opts ...Option) *Retriever {
	r := &Retriever{
		searcher:  searcher,
		logger:    log.Default(),
		k:         DefaultK,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retriever) K() int             { return r.k }
func (r *Retriever) Threshold() float64 { return r.threshold }

// Search returns the contents of the k nearest chunks without filtering.
// Backend errors yield an empty list.
func (r *Retriever) Search(ctx context.Context, query string, k int) []string {
	results, err := r.search(ctx, query, k)
	if err != nil {
		r.logger.Printf("error searching vector store: %v", err)
		return []string{}
	}
	return contents(results)
}

// SearchWithScore returns the contents of the k nearest chunks whose
// relevance meets threshold, or the top two when none do. Backend errors
// yield an empty list.
func (r *Retriever) SearchWithScore(ctx context.Context, query string, k int, threshold float64) []string {
	rc, err := r.Retrieve(ctx, query, k, threshold)
	if err != nil {
		r.logger.Printf("error searching vector store with scores: %v", err)
		return []string{}
	}
	return contents(rc.Snippets)
}

// Retrieve is the typed form of SearchWithScore. On error the context is
// empty and err is a *fault.DependencyError.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, threshold float64) (Context, error) {
	if threshold < 0 {
		threshold = r.threshold
	}

	results, err := r.search(ctx, query, k)
	if err != nil {
		return Context{}, err
	}

	passed := make([]Result, 0, len(results))
	for _, res := range results {
		if res.Relevance >= threshold {
			passed = append(passed, res)
		}
	}
	if len(passed) > 0 {
		return Context{Snippets: passed, Relevant: true}, nil
	}

	if len(results) > fallbackSize {
		results = results[:fallbackSize]
	}
	return Context{Snippets: results, Relevant: false}, nil
}

func (r *Retriever) search(ctx context.Context, query string, k int) ([]Result, error) {
	if r.searcher == nil {
		return nil, fault.Dependency(fault.ComponentIndex, errNoSearcher)
	}
	if k <= 0 {
		k = r.k
	}

	matches, err := r.searcher.Search(ctx, query, k)
	if err != nil {
		if fault.IsDependency(err, "") {
			return nil, err
		}
		return nil, fault.Dependency(fault.ComponentIndex, err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Content:   m.Chunk.Content,
			Source:    m.Chunk.Source,
			Relevance: Relevance(m.Score, m.Metric),
		})
	}
	return results, nil
}

func contents(results []Result) []string {
	out := make([]string, len(results))
	for i, res := range results {
		out[i] = res.Content
	}
	return out
}
