package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"portfolio-relay/handler"
	"portfolio-relay/internal/config"
	"portfolio-relay/internal/integrations/openrouter"
	"portfolio-relay/internal/integrations/paramstore"
	"portfolio-relay/internal/lib/sl"
	"portfolio-relay/internal/server"
	"portfolio-relay/internal/usecase"
	"portfolio-relay/internal/worker"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", sl.Err(err))
		os.Exit(1)
	}
	log := setupLogger(cfg.LogLevel, cfg.LogFormat)

	apiKey, err := resolveAPIKey(ctx, cfg)
	if err != nil {
		log.Error("failed to resolve OpenRouter API key", sl.Err(err))
		os.Exit(1)
	}
	log.Info("starting portfolio relay",
		slog.String("runtime", cfg.Runtime),
		slog.String("model", modelOrDefault(cfg.Model)),
		slog.Int("workers", cfg.WorkerPoolSize),
		sl.Secret(apiKey),
	)

	// ---- Clients ----
	llm, err := openrouter.NewClient(apiKey,
		openrouter.WithBaseURL(cfg.BaseURL),
		openrouter.WithModel(cfg.Model),
		openrouter.WithMaxTokens(cfg.MaxTokens),
		openrouter.WithTimeout(cfg.UpstreamTimeout),
		openrouter.WithAttribution(cfg.Referer, cfg.Title),
	)
	if err != nil {
		log.Error("failed to create OpenRouter client", sl.Err(err))
		os.Exit(1)
	}

	// ---- Handler ----
	pool := worker.NewPool(cfg.WorkerPoolSize)
	relay, err := usecase.NewRelayService(llm, pool, log, cfg.MaxMessageLength)
	if err != nil {
		log.Error("failed to create relay service", sl.Err(err))
		os.Exit(1)
	}
	h, err := handler.NewHandler(relay, log)
	if err != nil {
		log.Error("failed to create handler", sl.Err(err))
		os.Exit(1)
	}

	if cfg.Runtime == config.RuntimeLambda {
		lambda.Start(h.HandleAPIGateway)
		return
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.NewRouter(h, cfg.AllowedOrigins, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", sl.Err(err))
		}
		if err := pool.Close(shutdownCtx); err != nil {
			log.Warn("worker pool drain", sl.Err(err))
		}
	}()

	log.Info("listening", slog.String("addr", srv.Addr), slog.Any("origins", cfg.AllowedOrigins))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", sl.Err(err))
		os.Exit(1)
	}
	<-stopped
}

// resolveAPIKey prefers OPENROUTER_API_KEY and falls back to the SSM
// parameter named by OPENROUTER_API_KEY_PARAM.
func resolveAPIKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", err
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return "", err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return ps.GetToken(fetchCtx, cfg.APIKeyParam)
}

func setupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: sl.ParseLevel(level)}
	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

func modelOrDefault(m string) string {
	if m == "" {
		return openrouter.DefaultModel
	}
	return m
}
