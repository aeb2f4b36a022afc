package advice

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/fabfab/career-agent/fault"
	"github.com/fabfab/career-agent/llm"
	"github.com/fabfab/career-agent/persona"
	"github.com/fabfab/career-agent/retrieval"
)

type stubLLM struct {
	answer   string
	err      error
	calls    int
	messages []llm.Message
}

func (s *stubLLM) Generate(_ context.Context, messages []llm.Message) (string, error) {
	s.calls++
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	if len(messages) == 0 {
		return "", errors.New("no messages provided")
	}
	return s.answer, nil
}

var _ llm.Client = (*stubLLM)(nil)

func quietGenerator(client llm.Client, opts ...Option) *Generator {
	opts = append([]Option{WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return NewGenerator(client, opts...)
}

func relevantContext(snippets ...string) retrieval.Context {
	rc := retrieval.Context{Relevant: true}
	for _, s := range snippets {
		rc.Snippets = append(rc.Snippets, retrieval.Result{Content: s, Source: "guide.txt", Relevance: 0.9})
	}
	return rc
}

func TestGenerateSuccessUsesContext(t *testing.T) {
	client := &stubLLM{answer: "  Tailor every resume.  "}
	g := quietGenerator(client)

	got, err := g.Generate(context.Background(), "How do I fix my resume?", persona.ResumeExpert, relevantContext("Use action verbs."))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly one backend call, got %d", client.calls)
	}
	if got.Status != StatusSuccess || got.PersonaUsed != string(persona.ResumeExpert) || !got.ContextUsed {
		t.Fatalf("unexpected advice: %+v", got)
	}
	if got.Response != "Tailor every resume." {
		t.Fatalf("expected trimmed response, got %q", got.Response)
	}

	if len(client.messages) != 2 || client.messages[0].Role != llm.RoleSystem || client.messages[1].Role != llm.RoleUser {
		t.Fatalf("unexpected messages: %+v", client.messages)
	}
	if !strings.Contains(client.messages[0].Content, "Senior Resume Optimization Specialist") {
		t.Fatalf("system prompt missing persona role: %q", client.messages[0].Content)
	}
	user := client.messages[1].Content
	for _, want := range []string{"USER QUESTION: How do I fix my resume?", "--- Document Context ---", "Use action verbs.", "under 500 words"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q: %q", want, user)
		}
	}
}

func TestGenerateWithoutContextUsesMarker(t *testing.T) {
	client := &stubLLM{answer: "Start with the market."}
	got, err := quietGenerator(client).Generate(context.Background(), "Where do I start?", persona.CareerAnalyst, retrieval.Context{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.ContextUsed {
		t.Fatal("context must not be marked used without snippets")
	}
	if !strings.Contains(client.messages[1].Content, noContextMarker) {
		t.Fatalf("expected no-context marker in prompt")
	}
}

func TestGenerateFallbackSnippetsAreNotContextUsed(t *testing.T) {
	client := &stubLLM{answer: "Some advice."}
	rc := relevantContext("weakly related")
	rc.Relevant = false

	got, err := quietGenerator(client).Generate(context.Background(), "q", persona.SkillAdvisor, rc)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.ContextUsed {
		t.Fatal("below-threshold snippets must not count as used context")
	}
	if !strings.Contains(client.messages[1].Content, "weakly related") {
		t.Fatal("fallback snippets should still reach the prompt")
	}
}

func TestGenerateFailureServesFallback(t *testing.T) {
	cases := []struct {
		question string
		prefix   string
	}{
		{"Can you review my CV?", "I understand you're asking about resume/CV optimization."},
		{"Interview tomorrow, help", "I see you're asking about interview preparation."},
		{"Salary negotiation advice", "For salary negotiation, consider these fundamentals:"},
		{"What should I do with my life?", "I'm here to help with your career questions!"},
	}
	for _, tc := range cases {
		client := &stubLLM{err: errors.New("401 unauthorized")}
		got, err := quietGenerator(client).Generate(context.Background(), tc.question, persona.CareerAnalyst, relevantContext("ctx"))
		if !fault.IsDependency(err, fault.ComponentGeneration) {
			t.Fatalf("expected generation dependency error, got %v", err)
		}
		if client.calls != 1 {
			t.Fatalf("expected no retries, got %d calls", client.calls)
		}
		if got.Status != StatusFallback || got.PersonaUsed != FallbackPersona || got.ContextUsed {
			t.Fatalf("unexpected fallback shape: %+v", got)
		}
		if !strings.HasPrefix(got.Response, tc.prefix) {
			t.Fatalf("question %q: expected response starting with %q, got %q", tc.question, tc.prefix, got.Response)
		}
		if got.Response != FallbackFor(tc.question) {
			t.Fatalf("response should match FallbackFor")
		}
	}
}

func TestGenerateEmptyCompletionFallsBack(t *testing.T) {
	client := &stubLLM{answer: "   "}
	got, err := quietGenerator(client).Generate(context.Background(), "resume help", persona.ResumeExpert, retrieval.Context{})
	if !errors.Is(err, llm.ErrEmptyCompletion) {
		t.Fatalf("expected empty completion error, got %v", err)
	}
	if got.Status != StatusFallback {
		t.Fatalf("expected fallback, got %s", got.Status)
	}
}

func TestGenerateWithoutClientFallsBack(t *testing.T) {
	got, err := quietGenerator(nil).Generate(context.Background(), "hello", persona.CareerAnalyst, retrieval.Context{})
	if err == nil || got.Status != StatusFallback || got.Response == "" {
		t.Fatalf("expected fallback with error, got %+v, %v", got, err)
	}
}

func TestFallbackPrecedence(t *testing.T) {
	// resume wins over interview when both appear
	if got := FallbackFor("resume for my interview"); !strings.HasPrefix(got, "I understand you're asking about resume") {
		t.Fatalf("unexpected fallback: %q", got)
	}
}

func TestContextBlockLimits(t *testing.T) {
	long := strings.Repeat("é", 20)
	block, n := contextBlock([]string{long, "", "second", "third"}, 2, 10)
	if n != 2 {
		t.Fatalf("expected 2 snippets kept, got %d", n)
	}
	if strings.Contains(block, "third") {
		t.Fatalf("expected snippet cap of 2, got %q", block)
	}
	if !strings.Contains(block, strings.Repeat("é", 10)+"...") || strings.Contains(block, strings.Repeat("é", 11)) {
		t.Fatalf("expected snippet truncated to 10 runes, got %q", block)
	}
	if !strings.Contains(block, "\n\nsecond") {
		t.Fatalf("expected second non-empty snippet, got %q", block)
	}

	if got, n := contextBlock([]string{" ", ""}, 4, 100); got != noContextMarker || n != 0 {
		t.Fatalf("expected no-context marker, got %q (%d)", got, n)
	}
}

func TestGenerateCountsOnlySnippetsInPrompt(t *testing.T) {
	client := &stubLLM{answer: "Network early."}
	g := quietGenerator(client)

	many := relevantContext("one", "two", "three", "four", "five", "six")
	got, err := g.Generate(context.Background(), "How do I grow my network?", persona.NetworkingSpecialist, many)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !got.ContextUsed || got.Snippets != DefaultMaxSnippets {
		t.Fatalf("expected %d snippets used, got %+v", DefaultMaxSnippets, got)
	}

	blank := relevantContext("  ", "")
	got, err = g.Generate(context.Background(), "How do I grow my network?", persona.NetworkingSpecialist, blank)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.ContextUsed || got.Snippets != 0 {
		t.Fatalf("blank snippets must not count as context, got %+v", got)
	}
	if !strings.Contains(client.messages[1].Content, noContextMarker) {
		t.Fatalf("expected no-context marker in prompt: %q", client.messages[1].Content)
	}
}
