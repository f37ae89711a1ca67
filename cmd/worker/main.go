package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/alora-hq/alora/internal/mailer"
	"github.com/alora-hq/alora/internal/tasks"
	"github.com/alora-hq/alora/pkg/config"
	"github.com/alora-hq/alora/pkg/queue"
	"github.com/alora-hq/alora/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting Alora worker")

	mail := mailer.New(
		cfg.Mail.ResendAPIKey,
		cfg.Mail.FromAddress,
		cfg.Mail.AppName,
		cfg.Server.IsDevelopment(),
		logger,
	)

	srv := queue.NewServer(&cfg.Redis, 10)

	handler := tasks.NewHandler(mail, logger)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	logger.Info("worker stopped")
}
