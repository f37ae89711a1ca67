package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/alora-hq/alora/internal/admin"
	"github.com/alora-hq/alora/internal/api"
	"github.com/alora-hq/alora/internal/auth"
	"github.com/alora-hq/alora/internal/database"
	"github.com/alora-hq/alora/internal/mailer"
	"github.com/alora-hq/alora/internal/orgs"
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

	logger.Info("starting Alora server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it transactional mail is sent inline
	// instead of through the worker.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, mail will be sent inline", "error", err)
		redisClient = nil
	}

	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
	}

	mail := mailer.New(
		cfg.Mail.ResendAPIKey,
		cfg.Mail.FromAddress,
		cfg.Mail.AppName,
		cfg.Server.IsDevelopment(),
		logger,
	)
	dispatcher := tasks.NewDispatcher(asynqClient, mail, logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(auth.ServiceConfig{
		DB:              db,
		JWT:             jwtService,
		Google:          auth.NewGoogleVerifier(cfg.OAuth.GoogleClientID),
		GitHub:          auth.NewGitHubClient(cfg.OAuth.GitHubClientID, cfg.OAuth.GitHubClientSecret),
		Mail:            dispatcher,
		Logger:          logger,
		VerificationTTL: cfg.Codes.VerificationTTL(),
		ResetTTL:        cfg.Codes.PasswordResetTTL(),
	})
	orgService := orgs.NewService(db, dispatcher, logger)
	adminService := admin.NewService(db, logger)

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		AuthService:    authService,
		OrgService:     orgService,
		AdminService:   adminService,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
