// Package advice turns a question, a persona and retrieved context into a
// single answer, falling back to canned guidance when the model is down.
package advice

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fabfab/career-agent/fault"
	"github.com/fabfab/career-agent/llm"
	"github.com/fabfab/career-agent/persona"
	"github.com/fabfab/career-agent/retrieval"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusFallback Status = "fallback"
	StatusError    Status = "error"
)

// FallbackPersona is reported when the canned answer is used.
const FallbackPersona = "System Fallback"

const (
	DefaultMaxSnippets  = 4
	DefaultSnippetChars = 1500
)

// Advice is one generated answer. ContextUsed is true only when relevant
// snippets were placed in the prompt and the model answered; Snippets is how
// many of them the prompt carried.
type Advice struct {
	Response    string
	PersonaUsed string
	Status      Status
	ContextUsed bool
	Snippets    int
}

type Option func(*Generator)

func WithLogger(logger *log.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithSnippetLimits(maxSnippets, maxChars int) Option {
	return func(g *Generator) {
		if maxSnippets > 0 {
			g.maxSnippets = maxSnippets
		}
		if maxChars > 0 {
			g.snippetChars = maxChars
		}
	}
}

type Generator struct {
	client       llm.Client
	logger       *log.Logger
	maxSnippets  int
	snippetChars int
}

func NewGenerator(client llm.Client, opts ...Option) *Generator {
	g := &Generator{
		client:       client,
		logger:       log.Default(),
		maxSnippets:  DefaultMaxSnippets,
		snippetChars: DefaultSnippetChars,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate calls the model exactly once. The returned Advice is always
// usable; a non-nil error is a generation *fault.DependencyError explaining
// why the fallback was served.
func (g *Generator) Generate(ctx context.Context, question string, p persona.Persona, rc retrieval.Context) (Advice, error) {
	d := persona.Describe(p)

	snippets := make([]string, len(rc.Snippets))
	for i, s := range rc.Snippets {
		snippets[i] = s.Content
	}
	block, included := contextBlock(snippets, g.maxSnippets, g.snippetChars)
	messages := buildMessages(question, d, block)

	answer, err := g.complete(ctx, messages)
	if err != nil {
		g.logger.Printf("error generating advice with %s, serving fallback: %v", d.Name, err)
		return Fallback(question), fault.Dependency(fault.ComponentGeneration, err)
	}

	return Advice{
		Response:    answer,
		PersonaUsed: string(d.Name),
		Status:      StatusSuccess,
		ContextUsed: rc.Relevant && included > 0,
		Snippets:    included,
	}, nil
}

// Configured reports whether a generation backend is wired. Without one every
// answer is the canned fallback.
func (g *Generator) Configured() bool {
	return g.client != nil
}

func (g *Generator) complete(ctx context.Context, messages []llm.Message) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("llm client is not configured")
	}
	answer, err := g.client.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", llm.ErrEmptyCompletion
	}
	return answer, nil
}

// Fallback is the canned Advice for question.
func Fallback(question string) Advice {
	return Advice{
		Response:    FallbackFor(question),
		PersonaUsed: FallbackPersona,
		Status:      StatusFallback,
		ContextUsed: false,
	}
}
