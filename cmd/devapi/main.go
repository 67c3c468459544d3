/**
 * @description
 * This is the main entry point for the SplitUp reference backend. It serves
 * the REST contract the CLI consumes from an in-memory store so that the
 * client can be exercised end to end without the production services.
 *
 * Key features:
 * - Loads configuration from a .env file and environment variables.
 * - Publishes verification codes to RabbitMQ, or logs them when no broker is configured.
 * - Purges expired verification codes on a cron schedule.
 * - Implements graceful shutdown of the HTTP server and the scheduler.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files during local development.
 * - The module's internal packages for config, the backend handlers and RabbitMQ integration.
 */
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nsa09-nsa09/splitup-frontend/internal/config"
	"github.com/nsa09-nsa09/splitup-frontend/internal/devapi"
	"github.com/nsa09-nsa09/splitup-frontend/pkg/apiclient"
	"github.com/nsa09-nsa09/splitup-frontend/pkg/rabbitmq"
)

func main() {
	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	paths := apiclient.DefaultPaths()
	if err := paths.Apply(cfg.PathOverrides); err != nil {
		logger.Error("invalid API path override", "error", err)
		os.Exit(1)
	}

	// Set up RabbitMQ producer; without a broker the codes are only logged.
	publisher := rabbitmq.Connect(cfg.RabbitMQURL, logger)
	defer publisher.Close()

	store := devapi.NewStore()
	if cfg.SeedDemoData {
		devapi.Seed(store, time.Now())
		logger.Info("demo catalog seeded")
	}

	srv, err := devapi.NewServer(store, publisher, devapi.Options{
		JWTSecret:            cfg.JWTSecret,
		TokenTTL:             cfg.TokenTTL(),
		CodeTTL:              cfg.CodeTTL(),
		AuthRatePerMinute:    cfg.AuthRateLimitPerMinute,
		AllowedOrigins:       cfg.AllowedOrigins(),
		VerificationExchange: cfg.VerificationExchange,
		Paths:                paths,
	}, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	if cfg.AdminEmail != "" {
		admin, err := srv.SeedAdmin("admin", cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.Error("failed to seed admin account", "error", err)
			os.Exit(1)
		}
		if cfg.SeedDemoData {
			if err := devapi.SeedSubscriptions(store, admin.ID, time.Now()); err != nil {
				logger.Warn("failed to seed admin subscriptions", "error", err)
			}
		}
		logger.Info("admin account ready", "email", admin.Email, "user_id", admin.ID)
	}

	sweeper := srv.Sweeper(cfg.CodeSweepSchedule)
	if err := sweeper.Start(); err != nil {
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.ServerPort, "api_base", "/api", "rabbitmq", rabbitmq.MaskURL(cfg.RabbitMQURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("could not start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown logic.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	<-sweeper.Stop().Done()
	logger.Info("server gracefully stopped")
}
