package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ticketline/revcast/internal/api"
	"github.com/ticketline/revcast/internal/config"
	"github.com/ticketline/revcast/internal/logger"
	"github.com/ticketline/revcast/internal/models"
	"github.com/ticketline/revcast/internal/pipeline"
	"github.com/ticketline/revcast/internal/storage"
	"github.com/ticketline/revcast/internal/telegram"
)

var configPath = flag.String("config", "", "Path to configuration file (optional; defaults and REVCAST_* env vars apply without one)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if *configPath != "" {
		logger.Info("Configuration loaded from %s", *configPath)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// Initialize storage
	store, err := storage.New(ctx, cfg.Storage.Backend, cfg.Storage.CredentialsFile, cfg.Storage.BaseDir)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	// Initialize Telegram client
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	runner := pipeline.New(store, cfg)

	if cfg.Server.Enabled {
		serveForecasts(ctx, runner, telegramClient, cfg)
		return
	}

	summary, err := runner.Run(ctx)
	notifyResult(telegramClient, summary, err)
	if err != nil {
		logger.Error("Forecast run failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Forecast uploaded")
}

// serveForecasts runs the HTTP trigger until the context is cancelled.
func serveForecasts(ctx context.Context, runner *pipeline.Runner, telegramClient *telegram.Client, cfg *config.Config) {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(&notifyingRunner{runner: runner, notifier: telegramClient})
	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: handler.Router(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening on %s", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}
	logger.Info("Service stopped")
}

// notifyingRunner decorates a pipeline runner with Telegram notifications so
// that HTTP-triggered runs report their outcome the same way one-shot runs do.
type notifyingRunner struct {
	runner   *pipeline.Runner
	notifier *telegram.Client
}

func (n *notifyingRunner) Run(ctx context.Context) (*models.RunSummary, error) {
	summary, err := n.runner.Run(ctx)
	notifyResult(n.notifier, summary, err)
	return summary, err
}

func notifyResult(notifier *telegram.Client, summary *models.RunSummary, runErr error) {
	if notifier == nil {
		return
	}
	if runErr != nil {
		if err := notifier.NotifyFailure(runErr); err != nil {
			logger.Warn("Failed to send failure notification: %v", err)
		}
		return
	}
	if err := notifier.NotifyRun(summary); err != nil {
		logger.Warn("Failed to send run notification: %v", err)
	}
}
