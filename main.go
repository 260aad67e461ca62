package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardoC/medi-assist/internal/config"
	"github.com/RichardoC/medi-assist/internal/llm"
)

// Sends one prompt straight to the configured backend and prints what the
// extractor pulls out of the raw result. Handy for checking credentials.
func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	backend, err := llm.NewBackend(ctx, cfg.LLMProvider, llm.BackendOptions{
		APIKey:             cfg.APIKey(),
		Model:              cfg.LLMModel,
		OpenAIAPIKey:       cfg.OpenAIAPIKey,
		OpenAIBaseURL:      cfg.OpenAIBaseURL,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
	})
	if err != nil {
		logger.Fatal("failed to initialize backend", zap.Error(err))
	}
	if backend == nil {
		logger.Fatal("no credentials for provider", zap.String("provider", cfg.LLMProvider))
	}

	prompt := "What are common causes of a mild headache?"
	if len(os.Args) > 1 {
		prompt = strings.Join(os.Args[1:], " ")
	}
	raw, err := backend.Complete(ctx, llm.BuildContext(llm.SystemPrompt, nil, prompt))
	if err != nil {
		logger.Fatal("failed to generate completion", zap.Error(llm.Redact(llm.Classify(err), cfg.Secrets()...)))
	}
	text, ok := llm.Extract(raw)
	if !ok {
		logger.Fatal("no text in result", zap.Any("result", raw))
	}
	fmt.Println(strings.TrimSpace(text))
}
