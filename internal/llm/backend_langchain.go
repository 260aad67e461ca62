package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// placeholderToken satisfies langchaingo for OpenAI-compatible servers such as
// Ollama that do not check credentials.
const placeholderToken = "fake"

// LangChainBackend wraps any langchaingo model. Its raw result is *llms.ContentResponse.
type LangChainBackend struct {
	name     string
	model    llms.Model
	callOpts []llms.CallOption
}

func NewLangChain(name string, model llms.Model) *LangChainBackend {
	return &LangChainBackend{
		name:  name,
		model: model,
		callOpts: []llms.CallOption{
			llms.WithTemperature(Temperature),
			llms.WithTopK(TopK),
			llms.WithTopP(TopP),
			llms.WithMaxTokens(MaxOutputTokens),
		},
	}
}

func NewGemini(ctx context.Context, apiKey, model string) (*LangChainBackend, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	m, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	return NewLangChain(ProviderGemini, m), nil
}

// NewOpenAI talks to any OpenAI-compatible endpoint.
func NewOpenAI(baseURL, token, model string) (*LangChainBackend, error) {
	if token == "" {
		token = placeholderToken
	}
	opts := []openai.Option{openai.WithToken(token)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	return NewLangChain(ProviderOpenAI, m), nil
}

func (b *LangChainBackend) Name() string { return b.name }

func (b *LangChainBackend) Complete(ctx context.Context, prompt string) (any, error) {
	msgs := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}
	resp, err := b.model.GenerateContent(ctx, msgs, b.callOpts...)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
