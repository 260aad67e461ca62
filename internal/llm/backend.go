package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderYandex     = "yandex"
)

// Backend turns a prompt into a provider-shaped result. The result is handed to
// an Extractor, so adapters return whatever their SDK gives them.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (any, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt string) (any, error)

func (f BackendFunc) Name() string { return "func" }

func (f BackendFunc) Complete(ctx context.Context, prompt string) (any, error) {
	return f(ctx, prompt)
}

// Generation parameters shared by every adapter.
const (
	DefaultGeminiModel = "gemini-1.5-flash"
	Temperature        = 0.7
	TopK               = 40
	TopP               = 0.95
	MaxOutputTokens    = 2048
)

// BackendOptions carries every provider's settings; each adapter reads what it needs.
type BackendOptions struct {
	APIKey string
	Model  string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	OpenRouterReferrer string
	OpenRouterTitle    string

	YandexOAuthToken string
	YandexFolderID   string
}

// NewBackend selects an adapter once, at startup. A provider whose credentials
// are missing yields a nil Backend and no error.
func NewBackend(ctx context.Context, provider string, opts BackendOptions) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderGemini:
		if opts.APIKey == "" {
			return nil, nil
		}
		b, err := NewGemini(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		return b, nil
	case ProviderOpenAI:
		if opts.OpenAIBaseURL == "" && opts.OpenAIAPIKey == "" {
			return nil, nil
		}
		b, err := NewOpenAI(opts.OpenAIBaseURL, opts.OpenAIAPIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		return b, nil
	case ProviderOpenRouter:
		if opts.OpenAIAPIKey == "" {
			return nil, nil
		}
		return NewOpenRouter(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.Model, opts.OpenRouterReferrer, opts.OpenRouterTitle), nil
	case ProviderYandex:
		if opts.YandexOAuthToken == "" || opts.YandexFolderID == "" {
			return nil, nil
		}
		b, err := NewYandex(opts.YandexOAuthToken, opts.YandexFolderID)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
