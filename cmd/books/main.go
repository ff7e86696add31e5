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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-books/internal/app"
	"github.com/odyssey-erp/odyssey-books/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-books/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	books, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open books", slog.Any("error", err))
		os.Exit(1)
	}
	defer books.Close()

	var jobHandler *jobs.Handler
	if books.Redis != nil {
		opts, err := cache.Options(cfg.RedisAddr)
		if err != nil {
			logger.Error("redis options", slog.Any("error", err))
			os.Exit(1)
		}
		redisOpt := jobs.RedisOpt(opts)
		jobsClient := jobs.NewClient(redisOpt, cfg.WorkerQueue)
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(redisOpt)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("jobs inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, jobsClient, logger).WithQueue(cfg.WorkerQueue)
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      books.Handler(jobHandler),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening",
			slog.String("addr", cfg.AppAddr),
			slog.String("storage", cfg.StorageBackend),
			slog.Bool("statement_cache", books.Redis != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
