package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fabfab/career-agent/advice"
	"github.com/fabfab/career-agent/chat"
	"github.com/fabfab/career-agent/persona"
)

const maxUploadBytes = 10 << 20

var allowedUploadExtensions = []string{".txt", ".md"}

// Pipeline is the slice of *chat.Service the HTTP layer needs.
type Pipeline interface {
	Process(ctx context.Context, q chat.Query) (chat.Answer, error)
	GetMultiAgentAnswer(ctx context.Context, q chat.Query) (chat.Answer, error)
	AddKnowledge(ctx context.Context, content, filename string) chat.KnowledgeResult
	HealthCheck(ctx context.Context) chat.Health
	Status(ctx context.Context) chat.Status
	ConversationStarters() []string
	Agents() []persona.Descriptor
}

var _ Pipeline = (*chat.Service)(nil)

// Server exposes the career pipeline over HTTP.
type Server struct {
	pipeline Pipeline
	logger   *log.Logger
	metrics  http.Handler
	handler  http.Handler
}

type Option func(*Server)

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

type messageResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type knowledgeRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type startersResponse struct {
	Starters []string `json:"starters"`
}

type agentsResponse struct {
	Agents []persona.Descriptor `json:"agents"`
}

func New(pipeline Pipeline, opts ...Option) *Server {
	s := &Server{pipeline: pipeline, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/openapi.yaml", s.handleOpenAPI)
	mux.HandleFunc("/v1/chat", s.handleChat(false))
	mux.HandleFunc("/v1/chat/comprehensive", s.handleChat(true))
	mux.HandleFunc("/v1/knowledge", s.handleKnowledge)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/agents", s.handleAgents)
	mux.HandleFunc("/v1/starters", s.handleStarters)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	health := s.pipeline.HealthCheck(r.Context())
	status := http.StatusOK
	if health.Status == chat.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *Server) handleChat(comprehensive bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.methodNotAllowed(w, http.MethodPost)
			return
		}

		var req chatRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			s.writeError(w, http.StatusBadRequest, errors.New("message cannot be empty"))
			return
		}

		q := chat.Query{Text: req.Message, UserID: req.UserID}
		var (
			answer chat.Answer
			err    error
		)
		if comprehensive {
			answer, err = s.pipeline.GetMultiAgentAnswer(r.Context(), q)
		} else {
			answer, err = s.pipeline.Process(r.Context(), q)
		}
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}

		status := http.StatusOK
		if answer.Status == advice.StatusError {
			status = http.StatusServiceUnavailable
		}
		s.writeJSON(w, status, answer)
	}
}

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	req, err := readKnowledgeRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	result := s.pipeline.AddKnowledge(r.Context(), req.Content, req.Filename)
	if result.Status != advice.StatusSuccess {
		s.writeError(w, http.StatusInternalServerError, errors.New(result.Message))
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: result.Message, Filename: result.Filename})
}

// readKnowledgeRequest accepts either a JSON body or a multipart upload in
// the "file" field.
func readKnowledgeRequest(r *http.Request) (knowledgeRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req knowledgeRequest
		if err := decodeJSON(r, &req); err != nil {
			return knowledgeRequest{}, fmt.Errorf("decode request: %w", err)
		}
		if strings.TrimSpace(req.Filename) == "" {
			return knowledgeRequest{}, errors.New("no filename provided")
		}
		return req, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return knowledgeRequest{}, fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	if header.Filename == "" {
		return knowledgeRequest{}, errors.New("no filename provided")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtension(ext) {
		return knowledgeRequest{}, fmt.Errorf("file type not supported, please upload %s files", strings.Join(allowedUploadExtensions, ", "))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return knowledgeRequest{}, fmt.Errorf("read upload: %w", err)
	}
	return knowledgeRequest{Filename: header.Filename, Content: string(data)}, nil
}

func allowedExtension(ext string) bool {
	for _, allowed := range allowedUploadExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, s.pipeline.Status(r.Context()))
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, agentsResponse{Agents: s.pipeline.Agents()})
}

func (s *Server) handleStarters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, startersResponse{Starters: s.pipeline.ConversationStarters()})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
