// Package chat runs the question answering pipeline: retrieve context,
// pick a persona, generate advice.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fabfab/career-agent/advice"
	"github.com/fabfab/career-agent/fault"
	"github.com/fabfab/career-agent/ingestion"
	"github.com/fabfab/career-agent/persona"
	"github.com/fabfab/career-agent/retrieval"
)

type state int32

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SystemErrorPersona is reported on answers the pipeline could not produce.
const SystemErrorPersona = "System Error"

const (
	unavailableMessage = "I'm sorry, but I'm experiencing technical difficulties. Please try again later."
	emptyInputMessage  = "Message cannot be empty"
	previewLength      = 50
)

var conversationStarters = []string{
	"How do I transition to a new career field?",
	"Help me optimize my resume for tech jobs",
	"What should I expect in a behavioral interview?",
	"How do I negotiate salary effectively?",
	"What skills should I develop to advance my career?",
	"How do I build a professional network?",
	"What are the current trends in my industry?",
	"How do I prepare for a leadership role?",
	"What certifications would boost my career?",
	"How do I handle a career gap in my resume?",
}

var capabilities = []string{
	"Career guidance and planning",
	"Resume and CV optimization",
	"Interview preparation",
	"Skill development planning",
	"Professional networking advice",
	"Salary negotiation strategies",
	"Career transition support",
}

type Option func(*Service)

func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegisterer registers the pipeline metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) { s.registerer = reg }
}

// Service is the application scoped pipeline. Construct one at startup and
// share it between handlers; the components are built on first use.
type Service struct {
	build      Builder
	logger     *log.Logger
	registerer prometheus.Registerer
	metrics    *metrics

	initMu  sync.Mutex
	state   atomic.Int32
	comps   atomic.Pointer[Components]
	initErr error

	// docMu serialises document writes with their index updates.
	docMu sync.Mutex
}

func NewService(build Builder, opts ...Option) *Service {
	s := &Service{
		build:  build,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.registerer)
	return s
}

func (s *Service) currentState() state {
	return state(s.state.Load())
}

// Initialize builds the pipeline now instead of on the first request.
func (s *Service) Initialize(ctx context.Context) error {
	_, err := s.ensureReady(ctx)
	return err
}

// ensureReady runs the builder exactly once. Concurrent callers wait for the
// first one; a failed build is never retried.
func (s *Service) ensureReady(ctx context.Context) (*Components, error) {
	if s.currentState() == stateReady {
		return s.comps.Load(), nil
	}

	s.initMu.Lock()
	defer s.initMu.Unlock()

	switch s.currentState() {
	case stateReady:
		return s.comps.Load(), nil
	case stateFailed:
		return nil, s.initErr
	}

	s.state.Store(int32(stateInitializing))
	s.logger.Printf("initializing chat service")

	comps, err := s.initialize(context.WithoutCancel(ctx))
	if err != nil {
		s.initErr = &fault.InitializationError{Err: err}
		s.state.Store(int32(stateFailed))
		s.metrics.initializations.WithLabelValues("failed").Inc()
		s.logger.Printf("failed to initialize chat service: %v", err)
		return nil, s.initErr
	}

	s.comps.Store(comps)
	s.state.Store(int32(stateReady))
	outcome := "ready"
	if comps.Index.Degraded() {
		outcome = "degraded"
	}
	s.metrics.initializations.WithLabelValues(outcome).Inc()
	s.logger.Printf("chat service initialized (%s)", outcome)
	return comps, nil
}

func (s *Service) initialize(ctx context.Context) (comps *Components, err error) {
	defer func() {
		if r := recover(); r != nil {
			comps, err = nil, fmt.Errorf("panic while building pipeline: %v", r)
		}
	}()

	if s.build == nil {
		return nil, errors.New("no pipeline builder configured")
	}
	comps, err = s.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build components: %w", err)
	}
	if err := comps.validate(); err != nil {
		return nil, err
	}

	if _, idxErr := comps.Index.Initialize(ctx, comps.Documents); idxErr != nil {
		s.logger.Printf("knowledge index is degraded: %v", idxErr)
	}
	return comps, nil
}

func (c *Components) validate() error {
	switch {
	case c == nil:
		return errors.New("builder returned no components")
	case c.Index == nil:
		return errors.New("knowledge index not configured")
	case c.Documents == nil:
		return errors.New("document store not configured")
	case c.Retriever == nil:
		return errors.New("retriever not configured")
	case c.Classifier == nil:
		return errors.New("persona classifier not configured")
	case c.Generator == nil:
		return errors.New("advice generator not configured")
	}
	return nil
}

// Process answers one question. Blank questions are rejected with
// fault.ErrEmptyInput before the pipeline starts; every other outcome,
// including an unusable pipeline, is reported through Answer.Status.
func (s *Service) Process(ctx context.Context, q Query) (Answer, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return Answer{
			Response:    emptyInputMessage,
			Sources:     []string{},
			PersonaUsed: SystemErrorPersona,
			Status:      advice.StatusError,
		}, fault.ErrEmptyInput
	}

	requestID := uuid.NewString()
	start := time.Now()
	ctx, span := startSpan(ctx, "chat.process", attribute.String("career.request.id", requestID))
	defer span.End()

	s.logger.Printf("processing message %s from user %s: %s", requestID, userOrDefault(q.UserID), preview(text))

	answer := s.answer(ctx, requestID, text)

	s.metrics.answers.WithLabelValues(string(answer.Status), answer.PersonaUsed).Inc()
	s.metrics.duration.Observe(time.Since(start).Seconds())
	span.SetAttributes(answerAttrs(requestID, answer)...)
	if answer.Status == advice.StatusError {
		span.SetStatus(codes.Error, "pipeline unavailable")
	}
	return answer, nil
}

// GetMultiAgentAnswer answers with a single persona until personas can
// collaborate.
func (s *Service) GetMultiAgentAnswer(ctx context.Context, q Query) (Answer, error) {
	s.logger.Printf("processing multi-agent request from user %s", userOrDefault(q.UserID))
	return s.Process(ctx, q)
}

func (s *Service) answer(ctx context.Context, requestID, text string) Answer {
	comps, err := s.ensureReady(ctx)
	if err != nil {
		s.logger.Printf("request %s rejected, service unavailable: %v", requestID, err)
		return unavailableAnswer()
	}

	rc := s.retrieve(ctx, comps, requestID, text)
	p := comps.Classifier.Classify(text)

	genCtx, span := startSpan(ctx, "chat.generate", attribute.String("career.persona", string(p)))
	adv, err := comps.Generator.Generate(genCtx, text, p, rc)
	if err != nil {
		span.RecordError(err)
		s.logger.Printf("request %s served fallback: %v", requestID, err)
	}
	span.End()

	if strings.TrimSpace(adv.Response) == "" {
		adv = advice.Fallback(text)
	}

	answer := Answer{
		Response:    adv.Response,
		Sources:     []string{},
		PersonaUsed: adv.PersonaUsed,
		Status:      adv.Status,
		ContextUsed: adv.ContextUsed && rc.Relevant && adv.Snippets > 0,
	}
	if answer.ContextUsed {
		answer.Sources = []string{fmt.Sprintf("Knowledge base (%d relevant documents)", adv.Snippets)}
	}

	s.logger.Printf("processed message %s using %s (%s)", requestID, answer.PersonaUsed, answer.Status)
	return answer
}

// retrieve never fails; dependency errors degrade to an empty context.
func (s *Service) retrieve(ctx context.Context, comps *Components, requestID, text string) retrieval.Context {
	ctx, span := startSpan(ctx, "chat.retrieve")
	defer span.End()

	rc, err := comps.Retriever.Retrieve(ctx, text, 0, -1)
	if err != nil {
		span.RecordError(err)
		component := "unknown"
		var dep *fault.DependencyError
		if errors.As(err, &dep) {
			component = dep.Component
		}
		s.logger.Printf("request %s continuing without context, %s failed: %v", requestID, component, err)
		return retrieval.Context{}
	}
	span.SetAttributes(
		attribute.Int("career.context.snippets", len(rc.Snippets)),
		attribute.Bool("career.context.relevant", rc.Relevant),
	)
	return rc
}

// AddKnowledge stores a document and indexes it without a rebuild.
func (s *Service) AddKnowledge(ctx context.Context, content, filename string) KnowledgeResult {
	result := s.addKnowledge(ctx, content, filename)
	s.metrics.knowledge.WithLabelValues(string(result.Status)).Inc()
	return result
}

func (s *Service) addKnowledge(ctx context.Context, content, filename string) KnowledgeResult {
	comps, err := s.ensureReady(ctx)
	if err != nil {
		return KnowledgeResult{Status: advice.StatusError, Message: "Knowledge service is not available"}
	}

	s.docMu.Lock()
	defer s.docMu.Unlock()

	chunks, err := comps.Documents.AddDocument(ctx, content, filename)
	if err != nil {
		s.logger.Printf("error adding knowledge %s: %v", filename, err)
		return KnowledgeResult{Status: advice.StatusError, Message: fmt.Sprintf("Failed to add document: %v", err)}
	}

	stored := filename
	if len(chunks) > 0 {
		stored = chunks[0].Source
	}
	// a re-upload under the same name replaces the earlier chunks
	if _, err := comps.Index.DeleteBySource(ctx, stored); err != nil {
		s.logger.Printf("error replacing knowledge %s: %v", stored, err)
		return KnowledgeResult{Status: advice.StatusError, Message: fmt.Sprintf("Failed to add document: %v", err)}
	}
	if _, err := comps.Index.Add(ctx, chunks); err != nil {
		s.logger.Printf("error indexing knowledge %s: %v", stored, err)
		return KnowledgeResult{Status: advice.StatusError, Message: fmt.Sprintf("Failed to add document: %v", err)}
	}

	s.logger.Printf("added document %s to knowledge base with %d chunks", stored, len(chunks))
	return KnowledgeResult{
		Status:   advice.StatusSuccess,
		Message:  fmt.Sprintf("Successfully added %s to the knowledge base", stored),
		Filename: stored,
		Chunks:   len(chunks),
	}
}

// SyncDocument replaces the indexed chunks of a document in the documents
// directory with its current content. A removed document is only dropped.
func (s *Service) SyncDocument(ctx context.Context, name string, removed bool) KnowledgeResult {
	comps, err := s.ensureReady(ctx)
	if err != nil {
		return KnowledgeResult{Status: advice.StatusError, Message: "Knowledge service is not available"}
	}

	s.docMu.Lock()
	defer s.docMu.Unlock()

	var chunks []ingestion.Chunk
	if !removed {
		chunks, err = comps.Documents.LoadDocument(ctx, name)
		if err != nil {
			s.logger.Printf("error reloading %s: %v", name, err)
			return KnowledgeResult{Status: advice.StatusError, Message: fmt.Sprintf("Failed to reload document: %v", err)}
		}
	}

	dropped, err := comps.Index.DeleteBySource(ctx, name)
	if err != nil {
		s.logger.Printf("error dropping %s from index: %v", name, err)
		return KnowledgeResult{Status: advice.StatusError, Message: fmt.Sprintf("Failed to reload document: %v", err)}
	}
	if len(chunks) > 0 {
		if _, err := comps.Index.Add(ctx, chunks); err != nil {
			s.logger.Printf("error indexing %s: %v", name, err)
			return KnowledgeResult{Status: advice.StatusError, Message: fmt.Sprintf("Failed to reload document: %v", err)}
		}
	}

	s.logger.Printf("synced document %s: %d chunks dropped, %d indexed", name, dropped, len(chunks))
	return KnowledgeResult{
		Status:   advice.StatusSuccess,
		Message:  fmt.Sprintf("Synced %s with the knowledge base", name),
		Filename: name,
		Chunks:   len(chunks),
	}
}

// HealthCheck reports component status. It never initializes the pipeline
// and never calls the generation backend.
func (s *Service) HealthCheck(_ context.Context) Health {
	switch st := s.currentState(); st {
	case stateUninitialized, stateInitializing:
		return Health{Status: HealthUnavailable, Message: "Chat service is " + st.String()}
	case stateFailed:
		return Health{Status: HealthUnhealthy, Message: "Chat service failed to initialize"}
	}

	comps := s.comps.Load()
	index := HealthHealthy
	if comps.Index.Degraded() {
		index = HealthDegraded
	}
	generator := HealthHealthy
	if !comps.Generator.Configured() {
		generator = HealthUnavailable
	}

	overall := HealthHealthy
	if index != HealthHealthy || generator != HealthHealthy {
		overall = HealthDegraded
	}
	return Health{
		Status:  overall,
		Message: fmt.Sprintf("index: %s, generator: %s", index, generator),
		Components: map[string]string{
			"index":     index,
			"generator": generator,
		},
	}
}

// Status is the extended report behind the status endpoint. Like
// HealthCheck it does not initialize the pipeline.
func (s *Service) Status(ctx context.Context) Status {
	switch s.currentState() {
	case stateUninitialized, stateInitializing:
		return Status{Status: HealthUnavailable, Message: "Chat service not initialized", Agents: map[string]string{}, Capabilities: []string{}}
	case stateFailed:
		return Status{Status: "error", Message: "System not initialized", Agents: map[string]string{}, Capabilities: []string{}}
	}

	comps := s.comps.Load()
	count, err := comps.Index.Count(ctx)
	if err != nil {
		s.logger.Printf("error getting document count: %v", err)
		count = 0
	}

	agents := make(map[string]string)
	for _, d := range persona.All() {
		agents[agentKey(d.Name)] = "Available"
	}

	status := "active"
	if comps.Index.Degraded() || !comps.Generator.Configured() {
		status = HealthDegraded
	}
	return Status{
		Status:        status,
		Agents:        agents,
		DocumentCount: count,
		Capabilities:  append([]string(nil), capabilities...),
		Collaboration: false,
	}
}

func (s *Service) ConversationStarters() []string {
	return append([]string(nil), conversationStarters...)
}

func (s *Service) Agents() []persona.Descriptor {
	return persona.All()
}

func unavailableAnswer() Answer {
	return Answer{
		Response:    unavailableMessage,
		Sources:     []string{},
		PersonaUsed: SystemErrorPersona,
		Status:      advice.StatusError,
	}
}

func agentKey(p persona.Persona) string {
	return strings.ReplaceAll(strings.ToLower(string(p)), " ", "_")
}

func userOrDefault(userID string) string {
	if strings.TrimSpace(userID) == "" {
		return "default"
	}
	return userID
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
