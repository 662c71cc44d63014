package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aymenfurter/ai-podcast-generator/internal/backend"
	"github.com/aymenfurter/ai-podcast-generator/internal/config"
	"github.com/aymenfurter/ai-podcast-generator/internal/metrics"
	"github.com/aymenfurter/ai-podcast-generator/internal/session"
)

// Session is the slice of the session controller the control API needs.
type Session interface {
	GetSnapshot() session.Snapshot
	AskQuestion(question string)
	CombinedTranscript() string
}

// BackendStats exposes backend client statistics for the /stats endpoint.
type BackendStats interface {
	GetStats() backend.ClientStats
}

// HTTPServer provides HTTP API endpoints for monitoring and interaction
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	session Session
	client  BackendStats
	metrics *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new control API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, sess Session, client BackendStats, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		session:   sess,
		client:    client,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures control API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/session", h.withMetrics("/session", h.handleSession))
	mux.HandleFunc("/session/transcript", h.withMetrics("/session/transcript", h.handleTranscript))
	mux.HandleFunc("/question", h.withMetrics("/question", h.handleQuestion))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

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

// Start starts the control API server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting control API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("Control API server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the control API server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping control API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.session.GetSnapshot()
	clientStats := h.client.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"components": map[string]interface{}{
			"session": map[string]interface{}{
				"state":        snapshot.State,
				"current_turn": snapshot.CurrentTurn,
				"is_playing":   snapshot.IsPlaying,
			},
			"backend": map[string]interface{}{
				"total_requests": clientStats.TotalRequests,
				"success_rate":   clientStats.SuccessRate,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleSession implements the /session endpoint
func (h *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.session.GetSnapshot())
}

// handleTranscript implements the /session/transcript endpoint
func (h *HTTPServer) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"transcript": h.session.CombinedTranscript(),
		"timestamp":  time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// questionRequest is the /question request body
type questionRequest struct {
	Question string `json:"question"`
}

// handleQuestion implements the /question endpoint
func (h *HTTPServer) handleQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		http.Error(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}

	h.session.AskQuestion(question)
	h.logger.Info("Audience question received via API", slog.Int("length", len(question)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Sanitized configuration; the API key is intentionally omitted
	sanitizedConfig := map[string]interface{}{
		"backend": map[string]interface{}{
			"endpoint":       h.config.Backend.Endpoint,
			"timeout":        h.config.Backend.Timeout,
			"max_retries":    h.config.Backend.MaxRetries,
			"retry_delay_ms": h.config.Backend.RetryDelayMs,
		},
		"audio": map[string]interface{}{
			"sample_rate": h.config.Audio.SampleRate,
			"channels":    h.config.Audio.Channels,
			"bit_depth":   h.config.Audio.BitDepth,
		},
		"playback": map[string]interface{}{
			"analysis_window":   h.config.Playback.AnalysisWindow,
			"frame_interval_ms": h.config.Playback.FrameIntervalMs,
			"speaker_buffer_ms": h.config.Playback.SpeakerBufferMs,
		},
		"session": map[string]interface{}{
			"max_turns": h.config.Session.MaxTurns,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"backend":   h.client.GetStats(),
		"session":   h.session.GetSnapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
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
		"service": "AI Podcast Player",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                   "API documentation",
			"GET /health":             "Player health check",
			"GET /session":            "Current session state",
			"GET /session/transcript": "Combined transcript so far",
			"POST /question":          "Submit an audience question",
			"GET /config":             "Player configuration",
			"GET /stats":              "Backend and session statistics",
			"GET /metrics":            "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
