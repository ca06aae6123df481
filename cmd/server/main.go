package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"voice-qa-service/internal/cache"
	"voice-qa-service/internal/config"
	"voice-qa-service/internal/dispatch"
	"voice-qa-service/internal/exchange"
	"voice-qa-service/internal/extraction"
	"voice-qa-service/internal/ingest"
	"voice-qa-service/internal/metrics"
	"voice-qa-service/internal/resolution"
	"voice-qa-service/internal/server"
	"voice-qa-service/internal/store"
	"voice-qa-service/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voice-qa-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Load .env before the config so environment overrides can come
	// from a local file in development
	_ = godotenv.Load()

	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("bind_address", cfg.HTTP.Address),
		slog.Int("workers", cfg.Dispatch.Workers),
		slog.Int("queue_size", cfg.Dispatch.QueueSize),
		slog.Duration("cache_ttl", cfg.Cache.GetTTLDuration()),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("extraction_endpoint", cfg.Extraction.Endpoint),
		slog.String("resolution_endpoint", cfg.Resolution.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Select the record store. An empty URI keeps records in memory,
	// which is meant for development and tests only.
	var recordStore exchange.RecordStore
	var mongoStore *store.Mongo
	if cfg.Mongo.URI == "" {
		logger.Warn("No MongoDB URI configured, records are kept in memory and lost on restart")
		recordStore = store.NewMemory()
	} else {
		mongoStore, err = store.ConnectMongo(ctx, store.MongoConfig{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			Collection:     cfg.Mongo.Collection,
			ConnectRetries: cfg.Mongo.ConnectRetries,
			RetryDelay:     cfg.Mongo.GetRetryDelayDuration(),
		}, logger)
		if err != nil {
			logger.Error("Failed to connect to MongoDB", slog.String("error", err.Error()))
			os.Exit(1)
		}
		recordStore = mongoStore
	}

	// Volatile cache of in-flight questions
	questionCache := cache.New(logger, cfg.Cache.GetTTLDuration(), cfg.Cache.GetSweepIntervalDuration(), appMetrics)
	logger.Info("Question cache initialized",
		slog.Duration("ttl", cfg.Cache.GetTTLDuration()),
		slog.Duration("sweep_interval", cfg.Cache.GetSweepIntervalDuration()),
	)

	coordinator, err := exchange.NewCoordinator(questionCache, recordStore, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create exchange coordinator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Pipeline clients for the external services
	transcriber, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	extractor, err := extraction.NewClient(extraction.Config{
		Endpoint: cfg.Extraction.Endpoint,
		Timeout:  cfg.Extraction.GetTimeoutDuration(),
	})
	if err != nil {
		logger.Error("Failed to create extraction client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	resolver, err := resolution.NewClient(resolution.Config{
		Endpoint: cfg.Resolution.Endpoint,
		Timeout:  cfg.Resolution.GetTimeoutDuration(),
	})
	if err != nil {
		logger.Error("Failed to create resolution client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Dispatch worker pool
	dispatcher, err := dispatch.New(dispatch.Config{
		Workers:           cfg.Dispatch.Workers,
		QueueSize:         cfg.Dispatch.QueueSize,
		TranscribeTimeout: cfg.Dispatch.GetTranscribeTimeoutDuration(),
		ExtractTimeout:    cfg.Dispatch.GetExtractTimeoutDuration(),
		ResolveTimeout:    cfg.Dispatch.GetResolveTimeoutDuration(),
		FinalizeTimeout:   cfg.Dispatch.GetFinalizeTimeoutDuration(),
	}, transcriber, extractor, resolver, coordinator, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create dispatcher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dispatcher.Start()
	logger.Info("Dispatch workers started",
		slog.Int("workers", cfg.Dispatch.Workers),
		slog.Int("queue_size", cfg.Dispatch.QueueSize),
	)

	// Ingestion gateway
	gateway, err := ingest.NewGateway(ingest.Config{
		SpoolDir:     cfg.Ingest.SpoolDir,
		MaxAudioSize: cfg.Ingest.MaxAudioSizeBytes(),
	}, dispatcher, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create ingestion gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// HTTP API server
	httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg,
		gateway, coordinator, dispatcher, transcriber, questionCache, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.GetShutdownTimeoutDuration())
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Drain the dispatch queue so accepted recordings still finish
	dispatcher.Stop()

	// Stop pipeline clients and the cache janitor
	if err := transcriber.Close(); err != nil {
		logger.Error("Error closing transcription client", slog.String("error", err.Error()))
	}
	questionCache.Stop()

	if mongoStore != nil {
		if err := mongoStore.Close(shutdownCtx); err != nil {
			logger.Error("Error disconnecting from MongoDB", slog.String("error", err.Error()))
		}
	}

	// Get final statistics
	stats := dispatcher.GetStats()
	logger.Info("Final dispatch statistics",
		slog.Uint64("jobs_enqueued", stats.JobsEnqueued),
		slog.Uint64("jobs_processed", stats.JobsProcessed),
		slog.Uint64("jobs_failed", stats.JobsFailed),
		slog.Uint64("jobs_rejected", stats.JobsRejected),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
