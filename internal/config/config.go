package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete player configuration
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Audio    AudioConfig    `yaml:"audio"`
	Playback PlaybackConfig `yaml:"playback"`
	Session  SessionConfig  `yaml:"session"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BackendConfig contains podcast backend API configuration
type BackendConfig struct {
	Endpoint     string `yaml:"endpoint"`
	APIKey       string `yaml:"api_key"`
	Timeout      int    `yaml:"timeout"` // seconds
	MaxRetries   int    `yaml:"max_retries"`
	RetryDelayMs int    `yaml:"retry_delay_ms"`
}

// AudioConfig contains the PCM format delivered by the backend
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// PlaybackConfig contains playback engine tuning
type PlaybackConfig struct {
	AnalysisWindow  int `yaml:"analysis_window"` // samples, power of two
	FrameIntervalMs int `yaml:"frame_interval_ms"`
	SpeakerBufferMs int `yaml:"speaker_buffer_ms"`
}

// SessionConfig contains session controller configuration
type SessionConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

// HTTPConfig contains control API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. The PODCAST_API_KEY
// environment variable, when set, overrides backend.api_key so the key
// never has to live in the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if key := os.Getenv("PODCAST_API_KEY"); key != "" {
		config.Backend.APIKey = key
	}
	if endpoint := os.Getenv("PODCAST_BACKEND_URL"); endpoint != "" {
		config.Backend.Endpoint = endpoint
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates backend configuration
func (b *BackendConfig) Validate() error {
	if b.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if b.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", b.Timeout)
	}

	if b.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", b.MaxRetries)
	}

	if b.RetryDelayMs < 0 {
		return fmt.Errorf("retry_delay_ms cannot be negative, got %d", b.RetryDelayMs)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16 for backend PCM, got %d", a.BitDepth)
	}

	return nil
}

// Validate validates playback configuration
func (p *PlaybackConfig) Validate() error {
	if p.AnalysisWindow < 16 || p.AnalysisWindow > 2048 {
		return fmt.Errorf("analysis_window must be between 16 and 2048 samples, got %d", p.AnalysisWindow)
	}

	if p.AnalysisWindow&(p.AnalysisWindow-1) != 0 {
		return fmt.Errorf("analysis_window must be a power of two, got %d", p.AnalysisWindow)
	}

	if p.FrameIntervalMs < 1 {
		return fmt.Errorf("frame_interval_ms must be at least 1, got %d", p.FrameIntervalMs)
	}

	if p.SpeakerBufferMs < 10 {
		return fmt.Errorf("speaker_buffer_ms must be at least 10, got %d", p.SpeakerBufferMs)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be at least 1, got %d", s.MaxTurns)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the backend request timeout as a time.Duration
func (b *BackendConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Second
}

// GetRetryDelay returns the delay between fetch retries as a time.Duration
func (b *BackendConfig) GetRetryDelay() time.Duration {
	return time.Duration(b.RetryDelayMs) * time.Millisecond
}

// GetFrameInterval returns the visualization frame interval as a time.Duration
func (p *PlaybackConfig) GetFrameInterval() time.Duration {
	return time.Duration(p.FrameIntervalMs) * time.Millisecond
}

// GetSpeakerBuffer returns the speaker buffer length as a time.Duration
func (p *PlaybackConfig) GetSpeakerBuffer() time.Duration {
	return time.Duration(p.SpeakerBufferMs) * time.Millisecond
}
