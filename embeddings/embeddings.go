package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fabfab/career-agent/config"
)

const DefaultTimeout = 30 * time.Second

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int
	Timeout   time.Duration

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Provider:      cfg.Embeddings.Provider,
		Model:         NormalizeModel(cfg.Embeddings.Provider, cfg.Embeddings.Model),
		Dimension:     cfg.Embeddings.Dimension,
		Timeout:       cfg.Embeddings.Timeout,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(opts), nil
	case config.ProviderLocal:
		return NewHashEmbedder(opts.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
}

var modelAliases = map[string]map[string]string{
	config.ProviderOpenAI: {
		"":         "text-embedding-3-small",
		"3-small":  "text-embedding-3-small",
		"3-large":  "text-embedding-3-large",
		"small":    "text-embedding-3-small",
		"large":    "text-embedding-3-large",
		"ada":      "text-embedding-ada-002",
		"ada-002":  "text-embedding-ada-002",
		"ada002":   "text-embedding-ada-002",
		"embed-3s": "text-embedding-3-small",
	},
	config.ProviderOllama: {
		"":       "nomic-embed-text",
		"nomic":  "nomic-embed-text",
		"mxbai":  "mxbai-embed-large",
		"minilm": "all-minilm",
	},
}

// NormalizeModel expands short model aliases into the identifier the
// provider expects. Unknown names pass through unchanged, minus any
// "provider/" or "models/" prefix.
func NormalizeModel(provider, name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range []string{"models/", provider + "/"} {
		name = strings.TrimPrefix(name, prefix)
	}
	if aliases, ok := modelAliases[provider]; ok {
		if full, ok := aliases[strings.ToLower(name)]; ok {
			return full
		}
	}
	return name
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
