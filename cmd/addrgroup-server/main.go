package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/artemgubar/addrgroup/internal/config"
	"github.com/artemgubar/addrgroup/internal/group"
	httpserver "github.com/artemgubar/addrgroup/internal/http"
	"github.com/artemgubar/addrgroup/internal/match"
	"github.com/artemgubar/addrgroup/internal/process"
	"github.com/artemgubar/addrgroup/internal/translate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting addrgroup-server")
	logger.Info("configuration loaded",
		"http_addr", cfg.HTTPAddr,
		"similarity_threshold", cfg.SimilarityThreshold,
		"translator", cfg.Translator,
		"translate_timeout", cfg.TranslateTimeout,
		"translate_retries", cfg.TranslateRetries,
		"max_upload_bytes", cfg.MaxUploadBytes,
	)

	translator, err := translate.New(translate.Options{
		Backend:         cfg.Translator,
		Timeout:         cfg.TranslateTimeout,
		Retries:         cfg.TranslateRetries,
		MyMemoryEmail:   cfg.MyMemoryEmail,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("failed to create translator", "error", err)
		os.Exit(1)
	}

	engine := group.NewEngine(match.NewNormalizer(translator), cfg.SimilarityThreshold, logger)
	processor := process.NewProcessor(engine, logger)
	server := httpserver.NewServer(cfg.HTTPAddr, processor, cfg.MaxUploadBytes, logger)

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
