package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           int      `env:"PORT" envDefault:"3001"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`

	// The credential may arrive under any of these names; the first non-empty one wins.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GenAIAPIKey  string `env:"GENAI_API_KEY"`
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`

	// LLM settings
	LLMProvider         string        `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMFallbackProvider string        `env:"LLM_FALLBACK_PROVIDER"`
	LLMModel            string        `env:"LLM_MODEL"`
	LLMTimeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"0s"`
	OpenAIAPIKey        string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `env:"OPENAI_BASE_URL"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`
}

// Load reads an optional .env file and then the process environment. A missing
// env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	for i, o := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	return cfg, nil
}

func (c *Config) APIKey() string {
	for _, k := range []string{c.GeminiAPIKey, c.GenAIAPIKey, c.GoogleAPIKey} {
		if k != "" {
			return k
		}
	}
	return ""
}

// Secrets lists every configured credential, for masking in errors and logs.
func (c *Config) Secrets() []string {
	var out []string
	for _, s := range []string{c.GeminiAPIKey, c.GenAIAPIKey, c.GoogleAPIKey, c.OpenAIAPIKey, c.YandexOAuthToken} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SystemPrompt returns the override file's contents, or fallback when unset.
func (c *Config) SystemPrompt(fallback string) (string, error) {
	if c.SystemPromptPath == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(c.SystemPromptPath)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt %s: %w", c.SystemPromptPath, err)
	}
	return string(data), nil
}
