package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	// ProviderLocal selects the offline hashing embedder.
	ProviderLocal = "local"

	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
	Timeout   time.Duration
}

type LLMConfig struct {
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

type RAGConfig struct {
	DocumentsPath  string
	IndexPath      string
	IndexBackend   string
	ChunkSize      int
	ChunkOverlap   int
	SearchK        int
	ScoreThreshold float64
}

type Config struct {
	Environment string
	HTTPAddr    string

	RAG        RAGConfig
	Embeddings EmbeddingConfig
	LLM        LLMConfig

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaHost    string

	PostgresDSN string
	Neo4jURI    string
	Neo4jUser   string
	Neo4jPass   string
}

// Load reads an optional .env file and then the process environment. Values
// already present in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		RAG: RAGConfig{
			DocumentsPath:  getEnv("DOCUMENTS_PATH", "data/career_documents"),
			IndexPath:      getEnv("INDEX_PATH", "data/vector_db"),
			IndexBackend:   strings.ToLower(getEnv("INDEX_BACKEND", BackendSQLite)),
			ChunkSize:      getInt("CHUNK_SIZE", 800),
			ChunkOverlap:   getInt("CHUNK_OVERLAP", 100),
			SearchK:        getInt("VECTOR_SEARCH_K", 4),
			ScoreThreshold: getFloat("SCORE_THRESHOLD", 0.6),
		},
		Embeddings: EmbeddingConfig{
			Provider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderOpenAI)),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: getInt("EMBEDDING_DIMENSION", 0),
			Timeout:   getDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature: float32(getFloat("TEMPERATURE", 0.4)),
			MaxTokens:   getInt("MAX_TOKENS", 1024),
			Timeout:     getDuration("LLM_TIMEOUT", 60*time.Second),
		},
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		PostgresDSN:   getEnv("POSTGRES_DSN", "postgres://localhost:5432/career-agent?sslmode=disable"),
		Neo4jURI:      getEnv("NEO4J_URI", ""),
		Neo4jUser:     getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPass:     getEnv("NEO4J_PASSWORD", "password"),
	}
}

// Validate reports every setting that would make the pipeline misbehave.
func (c Config) Validate() error {
	var errs []error
	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.RAG.ChunkOverlap))
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.RAG.ChunkOverlap, c.RAG.ChunkSize))
	}
	if c.RAG.SearchK <= 0 {
		errs = append(errs, fmt.Errorf("VECTOR_SEARCH_K must be positive, got %d", c.RAG.SearchK))
	}
	if c.RAG.ScoreThreshold < 0 || c.RAG.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("SCORE_THRESHOLD must be within [0,1], got %v", c.RAG.ScoreThreshold))
	}
	switch c.RAG.IndexBackend {
	case BackendSQLite, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown INDEX_BACKEND: %s", c.RAG.IndexBackend))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func getFloat(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
