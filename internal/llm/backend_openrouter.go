package llm

import (
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "google/gemini-2.5-flash-lite"
)

// OpenRouterBackend uses go-openai directly so the OpenRouter attribution
// headers can be injected. Its raw result is openai.ChatCompletionResponse.
type OpenRouterBackend struct {
	client *openai.Client
	model  string
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

func NewOpenRouter(apiKey, baseURL, model, referrer, title string) *OpenRouterBackend {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = defaultOpenRouterBaseURL
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if referrer != "" || title != "" {
		h := http.Header{}
		if referrer != "" {
			h.Set("HTTP-Referer", referrer)
		}
		if title != "" {
			h.Set("X-Title", title)
		}
		config.HTTPClient = &http.Client{Transport: headerTransport{rt: http.DefaultTransport, headers: h}}
	}
	if model == "" {
		model = defaultOpenRouterModel
	}
	return &OpenRouterBackend{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (b *OpenRouterBackend) Name() string { return ProviderOpenRouter }

func (b *OpenRouterBackend) Complete(ctx context.Context, prompt string) (any, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: Temperature,
		TopP:        TopP,
		MaxTokens:   MaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
