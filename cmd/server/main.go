package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/garnizeh/bidboard/api"
	dbfs "github.com/garnizeh/bidboard/db"
	"github.com/garnizeh/bidboard/internal/config"
	"github.com/garnizeh/bidboard/internal/db"
	"github.com/garnizeh/bidboard/internal/notify"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// a missing .env is fine; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", slog.Any("err", err))
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("starting bidboard server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx := context.Background()

	// Open database connection
	dbCtx, dbCancel := context.WithTimeout(ctx, cfg.APITimeout)
	database, err := db.New(dbCtx, db.FileDSN(cfg.DatabasePath, cfg.BusyTimeout), logger)
	if err != nil {
		dbCancel()
		logger.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(dbCtx, database, dbfs.Migrations); err != nil {
			dbCancel()
			logger.Error("migration failed", slog.Any("err", err))
			os.Exit(1)
		}
	}
	dbCancel()

	notifier, closeNotifier, err := notify.New(cfg.Notifier, logger)
	if err != nil {
		logger.Error("failed to start notifier", slog.String("driver", cfg.Notifier.Driver), slog.Any("err", err))
		os.Exit(1)
	}

	api.SetLogger(logger)
	handler, err := api.SetupRoutes(cfg, version, buildTime, database, notifier)
	if err != nil {
		logger.Error("failed to set up routes", slog.Any("err", err))
		os.Exit(1)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}

	if err := closeNotifier(); err != nil {
		logger.Error("error closing notifier", slog.Any("err", err))
	}

	// Close database connection
	if err := database.Close(); err != nil {
		logger.Error("error closing db", slog.Any("err", err))
	}

	logger.Info("server exited")
}
