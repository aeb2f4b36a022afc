package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fabfab/career-agent/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	DefaultTemperature float32 = 0.4
	DefaultMaxTokens           = 1024
	DefaultTimeout             = 60 * time.Second
)

// ErrEmptyCompletion is returned when a backend answers with no text.
var ErrEmptyCompletion = errors.New("llm returned an empty completion")

type Message struct {
	Role    string
	Content string
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func (o Options) withDefaults() Options {
	if o.Temperature < 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Provider:      cfg.LLM.Provider,
		Model:         NormalizeModel(cfg.LLM.Provider, cfg.LLM.Model),
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		Timeout:       cfg.LLM.Timeout,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}.withDefaults()

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}

var modelAliases = map[string]map[string]string{
	config.ProviderOpenAI: {
		"":        "gpt-4o-mini",
		"4o":      "gpt-4o",
		"4o-mini": "gpt-4o-mini",
		"mini":    "gpt-4o-mini",
		"4.1":     "gpt-4.1",
		"3.5":     "gpt-3.5-turbo",
	},
	config.ProviderOllama: {
		"":       "llama3.1:8b",
		"llama3": "llama3.1:8b",
		"llama":  "llama3.1:8b",
	},
}

// NormalizeModel expands short chat model aliases for the given provider.
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
