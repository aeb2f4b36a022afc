package chat

import (
	"context"

	"github.com/fabfab/career-agent/advice"
	"github.com/fabfab/career-agent/ingestion"
	"github.com/fabfab/career-agent/persona"
	"github.com/fabfab/career-agent/retrieval"
	"github.com/fabfab/career-agent/vectorstore"
)

// Query is one user question.
type Query struct {
	Text   string `json:"message"`
	UserID string `json:"user_id,omitempty"`
}

// Answer is always well formed; Status tells real, canned and error answers
// apart. Sources is non-empty exactly when ContextUsed is true.
type Answer struct {
	Response    string        `json:"response"`
	Sources     []string      `json:"sources"`
	PersonaUsed string        `json:"agent_used"`
	Status      advice.Status `json:"status"`
	ContextUsed bool          `json:"context_used"`
}

type KnowledgeResult struct {
	Status   advice.Status `json:"status"`
	Message  string        `json:"message"`
	Filename string        `json:"filename,omitempty"`
	Chunks   int           `json:"chunks,omitempty"`
}

type Health struct {
	Status     string            `json:"status"`
	Message    string            `json:"message"`
	Components map[string]string `json:"services,omitempty"`
}

// Status is the extended system report.
type Status struct {
	Status        string            `json:"status"`
	Message       string            `json:"message,omitempty"`
	Agents        map[string]string `json:"agents"`
	DocumentCount int               `json:"document_count"`
	Capabilities  []string          `json:"capabilities"`
	Collaboration bool              `json:"collaboration"`
}

const (
	HealthHealthy     = "healthy"
	HealthDegraded    = "degraded"
	HealthUnhealthy   = "unhealthy"
	HealthUnavailable = "unavailable"
)

// KnowledgeIndex is the searchable chunk index. *vectorstore.Index
// implements it.
type KnowledgeIndex interface {
	Initialize(ctx context.Context, loader vectorstore.ChunkLoader) (vectorstore.Health, error)
	Add(ctx context.Context, chunks []ingestion.Chunk) ([]vectorstore.Record, error)
	Count(ctx context.Context) (int, error)
	DeleteBySource(ctx context.Context, source string) (int, error)
	Degraded() bool
}

// DocumentStore persists source documents. *ingestion.Loader implements it.
type DocumentStore interface {
	vectorstore.ChunkLoader
	AddDocument(ctx context.Context, content, filename string) ([]ingestion.Chunk, error)
	LoadDocument(ctx context.Context, name string) ([]ingestion.Chunk, error)
}

type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, k int, threshold float64) (retrieval.Context, error)
}

type AdviceGenerator interface {
	Generate(ctx context.Context, question string, p persona.Persona, rc retrieval.Context) (advice.Advice, error)
	Configured() bool
}

// Components is everything the pipeline needs once it is ready.
type Components struct {
	Index      KnowledgeIndex
	Documents  DocumentStore
	Retriever  ContextRetriever
	Classifier persona.Classifier
	Generator  AdviceGenerator
}

// Builder assembles the components. It runs at most once per Service.
type Builder func(ctx context.Context) (*Components, error)

var (
	_ KnowledgeIndex   = (*vectorstore.Index)(nil)
	_ DocumentStore    = (*ingestion.Loader)(nil)
	_ ContextRetriever = (*retrieval.Retriever)(nil)
	_ AdviceGenerator  = (*advice.Generator)(nil)
)
