package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-qa-service/internal/cache"
	"voice-qa-service/internal/config"
	"voice-qa-service/internal/conversation"
	"voice-qa-service/internal/dispatch"
	"voice-qa-service/internal/exchange"
	"voice-qa-service/internal/ingest"
	"voice-qa-service/internal/metrics"
	"voice-qa-service/internal/transcription"
)

// HTTPServer exposes the recording API together with monitoring endpoints
type HTTPServer struct {
	server        *http.Server
	logger        *slog.Logger
	config        *config.Config
	gateway       *ingest.Gateway
	coordinator   *exchange.Coordinator
	dispatcher    *dispatch.Dispatcher
	transcriber   *transcription.Client
	questionCache *cache.Cache
	metrics       *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config,
	gateway *ingest.Gateway, coordinator *exchange.Coordinator, dispatcher *dispatch.Dispatcher,
	transcriber *transcription.Client, questionCache *cache.Cache, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:        logger,
		config:        appConfig,
		gateway:       gateway,
		coordinator:   coordinator,
		dispatcher:    dispatcher,
		transcriber:   transcriber,
		questionCache: questionCache,
		metrics:       m,
		startTime:     time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Recording API
	mux.HandleFunc("/api/record", h.withMetrics("/api/record", h.handleRecord))
	mux.HandleFunc("/api/processing_notification", h.withMetrics("/api/processing_notification", h.handleProcessingNotification))
	mux.HandleFunc("/api/save_answer", h.withMetrics("/api/save_answer", h.handleSaveAnswer))
	mux.HandleFunc("/api/query_status/", h.withMetrics("/api/query_status/{chatid}", h.handleQueryStatus))
	mux.HandleFunc("/api/answer_status/", h.withMetrics("/api/answer_status/{chatid}", h.handleAnswerStatus))

	// History endpoints
	mux.HandleFunc("/api/records/", h.withMetrics("/api/records/{id}", h.handleRecordDetail))
	mux.HandleFunc("/api/clear_history", h.withMetrics("/api/clear_history", h.handleClearHistory))
	mux.HandleFunc("/results", h.withMetrics("/results", h.handleResults))
	mux.HandleFunc("/results/", h.withMetrics("/results/{chatid}", h.handleResultsDetail))

	// Monitoring endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Metrics endpoint for Prometheus
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// Handler returns the configured route handler.
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// writeJSON encodes payload with the given status code.
func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError maps a coded error to its HTTP status and response body.
func (h *HTTPServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch conversation.CodeOf(err) {
	case conversation.ErrorValidation:
		status = http.StatusBadRequest
	case conversation.ErrorNotFound:
		status = http.StatusNotFound
	case conversation.ErrorBusy:
		status = http.StatusServiceUnavailable
	case conversation.ErrorDependency:
		status = http.StatusBadGateway
	}

	message := conversation.ReasonOf(err)
	if message == "" {
		message = "internal server error"
	}

	h.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	storeStatus := "reachable"
	if err := h.coordinator.StoreReady(r.Context()); err != nil {
		status = "degraded"
		storeStatus = "unreachable"
	}

	dispatchStats := h.dispatcher.GetStats()

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "voice-qa-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"dispatch": map[string]interface{}{
				"status":         "running",
				"queue_depth":    dispatchStats.QueueDepth,
				"queue_capacity": dispatchStats.QueueCapacity,
				"workers":        dispatchStats.Workers,
			},
			"question_cache": map[string]interface{}{
				"status":  "running",
				"entries": h.questionCache.Len(),
			},
			"store": map[string]interface{}{
				"status": storeStatus,
			},
		},
	}

	h.writeJSON(w, http.StatusOK, health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":        time.Since(h.startTime).String(),
		"timestamp":     time.Now().UTC(),
		"dispatch":      h.dispatcher.GetStats(),
		"transcription": h.transcriber.GetStats(),
		"question_cache": map[string]interface{}{
			"entries": h.questionCache.Len(),
		},
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (credentials and URIs omitted)
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"port":    h.config.HTTP.Port,
			"address": h.config.HTTP.Address,
		},
		"ingest": map[string]interface{}{
			"max_audio_size_mb": h.config.Ingest.MaxAudioSizeMB,
		},
		"dispatch": map[string]interface{}{
			"workers":            h.config.Dispatch.Workers,
			"queue_size":         h.config.Dispatch.QueueSize,
			"transcribe_timeout": h.config.Dispatch.TranscribeTimeout,
			"extract_timeout":    h.config.Dispatch.ExtractTimeout,
			"resolve_timeout":    h.config.Dispatch.ResolveTimeout,
			"finalize_timeout":   h.config.Dispatch.FinalizeTimeout,
		},
		"cache": map[string]interface{}{
			"ttl":            h.config.Cache.TTL,
			"sweep_interval": h.config.Cache.SweepInterval,
		},
		"mongo": map[string]interface{}{
			"database":   h.config.Mongo.Database,
			"collection": h.config.Mongo.Collection,
		},
		"transcription": map[string]interface{}{
			"timeout":        h.config.Transcription.Timeout,
			"max_retries":    h.config.Transcription.MaxRetries,
			"max_concurrent": h.config.Transcription.MaxConcurrent,
			// Note: endpoint and API key are intentionally omitted
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	h.writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Voice QA Service",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"GET /":                             "API documentation",
			"POST /api/record":                  "Submit a recording (base64 audio_data, optional chatid)",
			"POST /api/processing_notification": "Publish an in-flight question for a conversation",
			"POST /api/save_answer":             "Finalize an answer for a conversation",
			"GET /api/query_status/{chatid}":    "Check whether a question is known for a conversation",
			"GET /api/answer_status/{chatid}":   "Check whether an answer is ready for a conversation",
			"GET /api/records/{id}":             "Fetch a single conversation record",
			"POST /api/clear_history":           "Delete all conversation records",
			"GET /results":                      "List all conversation records, latest first",
			"GET /results/{chatid}":             "List records for one conversation, latest first",
			"GET /health":                       "Service health check",
			"GET /stats":                        "Service statistics",
			"GET /config":                       "Sanitized service configuration",
			"GET /metrics":                      "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	h.writeJSON(w, http.StatusOK, apiDoc)
}
