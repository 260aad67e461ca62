package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RichardoC/medi-assist/internal/api"
	"github.com/RichardoC/medi-assist/internal/config"
	"github.com/RichardoC/medi-assist/internal/llm"
	"github.com/RichardoC/medi-assist/internal/ratelimit"
)

type serverFlags struct {
	envFile string
	port    int
	dev     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &serverFlags{}
	cmd := &cobra.Command{
		Use:           "medi-assist",
		Short:         "Serve the GENA medical assistant over HTTP and WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(flags.dev)
			if err != nil {
				fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
				return err
			}
			defer logger.Sync()

			if err := run(cmd.Context(), flags, logger); err != nil {
				logger.Error("server exited", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.envFile, "env-file", ".env", "optional dotenv file loaded before the environment")
	cmd.Flags().IntVar(&flags.port, "port", 0, "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&flags.dev, "dev", false, "human-readable debug logging")
	return cmd
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, flags *serverFlags, logger *zap.Logger) error {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return err
	}
	if flags.port != 0 {
		cfg.Port = flags.port
	}

	prompt, err := cfg.SystemPrompt(llm.SystemPrompt)
	if err != nil {
		return err
	}

	opts := llm.BackendOptions{
		APIKey:             cfg.APIKey(),
		Model:              cfg.LLMModel,
		OpenAIAPIKey:       cfg.OpenAIAPIKey,
		OpenAIBaseURL:      cfg.OpenAIBaseURL,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
	}
	primary, err := llm.NewBackend(ctx, cfg.LLMProvider, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize primary backend: %w", err)
	}
	fallback, err := llm.NewBackend(ctx, cfg.LLMFallbackProvider, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize fallback backend: %w", err)
	}

	limiter := ratelimit.New()
	svc := llm.New(primary, limiter,
		llm.WithFallback(fallback),
		llm.WithSystemPrompt(prompt),
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithLogger(logger.Named("llm")),
		llm.WithSecrets(cfg.Secrets()...),
	)

	if svc.Configured() {
		logger.Info("AI service configured",
			zap.String("provider", cfg.LLMProvider),
			zap.String("fallback", cfg.LLMFallbackProvider))
	} else {
		logger.Warn("AI service not configured; chat requests will fail with CONFIG_ERROR")
	}

	origins := api.OriginAllowList(cfg.AllowedOrigins)
	apiLogger := logger.Named("api")
	router := api.NewRouter(
		api.NewHandler(svc, limiter, apiLogger),
		api.NewRealtime(svc, origins, apiLogger.Named("ws")),
		origins,
		apiLogger,
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", zap.String("addr", srv.Addr), zap.Strings("origins", cfg.AllowedOrigins))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
