package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aymenfurter/ai-podcast-generator/internal/backend"
	"github.com/aymenfurter/ai-podcast-generator/internal/config"
	"github.com/aymenfurter/ai-podcast-generator/internal/console"
	"github.com/aymenfurter/ai-podcast-generator/internal/metrics"
	"github.com/aymenfurter/ai-podcast-generator/internal/playback"
	"github.com/aymenfurter/ai-podcast-generator/internal/server"
	"github.com/aymenfurter/ai-podcast-generator/internal/session"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "ai-podcast-player"
	serviceVersion    = "1.0.0"
)

// displayingPlayer shows each turn's speaker and transcript before playing it
type displayingPlayer struct {
	engine *playback.Engine
	term   *console.Console
}

func (p *displayingPlayer) PlayTurn(ctx context.Context, turn *backend.Turn) error {
	p.term.ShowTurn(turn.Speaker, turn.Transcript)
	return p.engine.PlayTurn(ctx, turn)
}

// countingNotifier counts fetch retries on their way to the terminal
type countingNotifier struct {
	*console.Console
	metrics *metrics.Metrics
}

func (n *countingNotifier) RetryNotice(text string) {
	n.metrics.FetchRetries.Inc()
	n.Console.RetryNotice(text)
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	topic := flag.String("topic", "", "Podcast topic (required)")
	listen := flag.String("listen", "", "Control API listen address, overrides config (host:port)")
	flag.Parse()

	if *topic == "" {
		fmt.Fprintln(os.Stderr, "Usage: player -topic \"<podcast topic>\" [-config path]")
		os.Exit(1)
	}

	// Load .env before the config so environment overrides apply
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *listen != "" {
		host, portStr, err := net.SplitHostPort(*listen)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -listen address %q: %v\n", *listen, err)
			os.Exit(1)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -listen port %q: %v\n", portStr, err)
			os.Exit(1)
		}
		cfg.HTTP.Enabled = true
		cfg.HTTP.Address = host
		cfg.HTTP.Port = port
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Player starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
		slog.String("topic", *topic),
	)

	logger.Info("Configuration loaded",
		slog.String("backend_endpoint", cfg.Backend.Endpoint),
		slog.Int("max_retries", cfg.Backend.MaxRetries),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("max_turns", cfg.Session.MaxTurns),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Terminal surface for status, notifications, and visualization
	term := console.New(os.Stdout)

	// Backend client
	client, err := backend.NewClient(backend.Config{
		BaseURL:    cfg.Backend.Endpoint,
		APIKey:     cfg.Backend.APIKey,
		Timeout:    cfg.Backend.GetTimeoutDuration(),
		MaxRetries: cfg.Backend.MaxRetries,
		RetryDelay: cfg.Backend.GetRetryDelay(),
	}, logger, &countingNotifier{Console: term, metrics: appMetrics})
	if err != nil {
		logger.Error("Failed to create backend client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Backend client initialized",
		slog.String("endpoint", cfg.Backend.Endpoint),
	)

	// Playback engine with the console as visualization sink
	engine := playback.NewEngine(playback.Config{
		SampleRate:     cfg.Audio.SampleRate,
		Channels:       cfg.Audio.Channels,
		AnalysisWindow: cfg.Playback.AnalysisWindow,
		FrameInterval:  cfg.Playback.GetFrameInterval(),
		SpeakerBuffer:  cfg.Playback.GetSpeakerBuffer(),
		OnFrame:        term.RenderFrame,
	}, logger)

	// Session controller
	controller := session.NewController(session.Config{
		MaxTurns: cfg.Session.MaxTurns,
	}, client, &displayingPlayer{engine: engine, term: term}, logger, term.Hooks(), appMetrics)

	// Control API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, client, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start control API server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Run the session; a signal cancels playback mid-turn
	sessionDone := make(chan error, 1)
	go func() {
		sessionDone <- controller.Run(ctx, *topic)
	}()

	var sessionErr error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
		<-sessionDone
	case sessionErr = <-sessionDone:
		if sessionErr != nil {
			logger.Error("Session ended with error", slog.String("error", sessionErr.Error()))
		}
	}

	logger.Info("Starting graceful shutdown...")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping control API server", slog.String("error", err.Error()))
		}
	}

	// Final backend statistics
	stats := client.GetStats()
	logger.Info("Final backend statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Uint64("total_retries", stats.TotalRetries),
	)

	logger.Info("Player stopped")

	if sessionErr != nil {
		os.Exit(1)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
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
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
