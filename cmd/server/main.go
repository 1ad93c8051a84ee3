// Command server starts the interview feedback engine HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	ai "github.com/prepmind/feedback-engine/internal/adapter/ai"
	"github.com/prepmind/feedback-engine/internal/adapter/ai/hosted"
	"github.com/prepmind/feedback-engine/internal/adapter/ai/ollama"
	"github.com/prepmind/feedback-engine/internal/adapter/archive"
	httpserver "github.com/prepmind/feedback-engine/internal/adapter/httpserver"
	"github.com/prepmind/feedback-engine/internal/adapter/observability"
	"github.com/prepmind/feedback-engine/internal/adapter/repo/postgres"
	"github.com/prepmind/feedback-engine/internal/app"
	"github.com/prepmind/feedback-engine/internal/config"
	"github.com/prepmind/feedback-engine/internal/domain"
	"github.com/prepmind/feedback-engine/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, model, and pipeline instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Primary store. Persistence is best-effort by design, so a missing
	// database degrades to archive-only operation instead of refusing to boot.
	ctx := context.Background()
	var interviews domain.InterviewRepository
	var pool *pgxpool.Pool
	if cfg.DBURL != "" {
		pool, err = postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			slog.Warn("db connect failed; continuing without primary store", slog.Any("error", err))
		} else {
			interviews = postgres.NewInterviewRepo(pool)
			defer pool.Close()
		}
	}

	// Model invocation: local runtime with hosted fallback. ForceHosted is
	// decided once at startup (capability probe for local acceleration
	// hardware lives outside this binary) and injected as policy.
	localClient := ollama.New(cfg.OllamaHost, cfg.ModelTimeout)
	var hostedClient domain.ModelClient
	if cfg.HostedConfigured() {
		hostedClient = hosted.New(cfg)
		slog.Info("hosted model fallback configured", slog.String("endpoint", cfg.HostedEndpoint))
	}
	policy := ai.InvocationPolicy{ForceHosted: cfg.ForceHosted && cfg.HostedConfigured()}
	if cfg.ForceHosted && !cfg.HostedConfigured() {
		slog.Warn("FORCE_HOSTED set but hosted endpoint not configured; using local runtime")
	}
	invoker := ai.NewInvoker(policy, localClient, hostedClient)

	prompts, err := config.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		slog.Error("failed to load prompts", slog.Any("error", err))
		os.Exit(1)
	}

	extractor := ai.NewExtractor(invoker, prompts, cfg.ModelName, cfg.MaxRepairRounds)
	archiver := archive.NewFileArchiver(cfg.FeedbackDir)
	feedbackSvc := usecase.NewFeedbackService(invoker, extractor, interviews, archiver, prompts, cfg.ModelName, cfg.MaxTranscriptChars)

	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return nil
		}
		return pool.Ping(ctx)
	}
	srv := httpserver.NewServer(cfg, feedbackSvc, dbCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("model", cfg.ModelName))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
