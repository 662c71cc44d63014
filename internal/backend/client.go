package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxTurns is the hard ceiling on the number of turns per podcast session.
// Turn numbers run from 0 to MaxTurns-1 inclusive.
const MaxTurns = 7

// ErrCeilingReached signals that the requested turn number is past the
// ceiling. It is a sentinel for "no more turns", not a failure.
var ErrCeilingReached = errors.New("turn ceiling reached")

// Client provides HTTP client functionality for the podcast generation API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	notifier   Notifier

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains podcast backend client configuration
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int           // Total fetch attempts per turn
	RetryDelay time.Duration // Fixed delay between attempts
}

// TurnRequest carries everything the backend needs to produce the next turn
type TurnRequest struct {
	Script             string
	CombinedTranscript string
	Turn               int
	AudienceQuestion   string
}

// Turn is one unit of conversational content: a normalized transcript
// attributed to a speaker plus raw PCM audio bytes.
type Turn struct {
	Number     int
	Speaker    string
	Transcript string
	Audio      []byte
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// Notifier receives user-visible feedback emitted while a fetch is in
// progress. All methods must be safe for concurrent use.
type Notifier interface {
	Status(text string, transient bool)
	ClearStatus()
	RetryNotice(text string)
	ClearRetryNotice()
}

// NopNotifier is a Notifier that discards all feedback.
type NopNotifier struct{}

func (NopNotifier) Status(string, bool) {}
func (NopNotifier) ClearStatus()        {}
func (NopNotifier) RetryNotice(string)  {}
func (NopNotifier) ClearRetryNotice()   {}

type scriptRequestPayload struct {
	Topic string `json:"topic"`
}

type scriptResponse struct {
	PodcastScript string `json:"podcast_script"`
}

type turnRequestPayload struct {
	PodcastScript      string `json:"podcast_script"`
	CombinedTranscript string `json:"combined_transcript"`
	Turn               int    `json:"turn"`
	AudienceQuestion   string `json:"audience_question,omitempty"`
}

// turnResponse mirrors the backend wire format. The audio payload arrives
// base64-encoded; encoding/json decodes it into raw bytes on unmarshal.
type turnResponse struct {
	Transcript string `json:"transcript"`
	Speaker    string `json:"speaker"`
	Audio      []byte `json:"audio_base64"`
}

// NewClient creates a new podcast backend client
func NewClient(config Config, logger *slog.Logger, notifier Notifier) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxRetries < 1 {
		config.MaxRetries = 3
	}

	if config.RetryDelay <= 0 {
		config.RetryDelay = 2 * time.Second
	}

	if notifier == nil {
		notifier = NopNotifier{}
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		notifier:   notifier,
	}, nil
}

// GenerateScript asks the backend to produce the podcast script for a topic.
// Script generation failures surface immediately; there is no retry.
func (c *Client) GenerateScript(ctx context.Context, topic string) (string, error) {
	c.incrementTotalRequests()

	body, err := c.postJSON(ctx, "/generate_podcast_script", scriptRequestPayload{Topic: topic})
	if err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("script generation failed: %w", err)
	}

	var resp scriptResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("failed to parse script response: %w", err)
	}

	if resp.PodcastScript == "" {
		c.incrementFailedRequests()
		return "", fmt.Errorf("script response missing podcast_script field")
	}

	c.incrementSuccessRequests()
	c.logger.Info("Podcast script generated",
		slog.String("topic", topic),
		slog.Int("script_length", len(resp.PodcastScript)),
	)

	return resp.PodcastScript, nil
}

// NextTurn fetches one conversational turn. Past the ceiling it returns
// ErrCeilingReached without touching the network. Transport and validation
// failures are retried up to MaxRetries total attempts with a fixed delay;
// a retry notice is emitted before each delay. Exhaustion returns the last
// error wrapped.
func (c *Client) NextTurn(ctx context.Context, req TurnRequest) (*Turn, error) {
	if req.Turn >= MaxTurns {
		return nil, ErrCeilingReached
	}

	c.notifier.Status(fmt.Sprintf("Fetching turn %d...", req.Turn), true)
	defer c.notifier.ClearStatus()

	c.incrementTotalRequests()
	startTime := time.Now()

	payload := turnRequestPayload{
		PodcastScript:      req.Script,
		CombinedTranscript: req.CombinedTranscript,
		Turn:               req.Turn,
	}

	if req.AudienceQuestion != "" {
		payload.AudienceQuestion = req.AudienceQuestion
		payload.CombinedTranscript = annotateQuestion(req.CombinedTranscript, req.AudienceQuestion)
	}

	var lastErr error

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		turn, err := c.doTurnRequest(ctx, payload)
		if err == nil {
			c.incrementSuccessRequests()
			c.updateAvgResponseTime(time.Since(startTime))
			return turn, nil
		}

		lastErr = err
		c.logger.Warn("Turn fetch attempt failed",
			slog.Int("turn", req.Turn),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.config.MaxRetries),
			slog.String("error", err.Error()),
		)

		if attempt == c.config.MaxRetries {
			break
		}

		c.incrementTotalRetries()
		c.notifier.RetryNotice(fmt.Sprintf("Turn %d failed, retrying (%d/%d)...",
			req.Turn, attempt, c.config.MaxRetries))

		select {
		case <-time.After(c.config.RetryDelay):
		case <-ctx.Done():
			c.notifier.ClearRetryNotice()
			c.incrementFailedRequests()
			return nil, ctx.Err()
		}

		c.notifier.ClearRetryNotice()
	}

	c.incrementFailedRequests()
	return nil, fmt.Errorf("turn %d fetch failed after %d attempts: %w",
		req.Turn, c.config.MaxRetries, lastErr)
}

// doTurnRequest performs a single /next_turn request and normalizes the result
func (c *Client) doTurnRequest(ctx context.Context, payload turnRequestPayload) (*Turn, error) {
	body, err := c.postJSON(ctx, "/next_turn", payload)
	if err != nil {
		return nil, err
	}

	var resp turnResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse turn response: %w", err)
	}

	if resp.Transcript == "" {
		return nil, fmt.Errorf("turn response missing transcript field")
	}

	if len(resp.Audio) == 0 {
		return nil, fmt.Errorf("turn response missing audio payload")
	}

	transcript := EnsureSpeakerPrefix(resp.Speaker, NormalizeTranscript(resp.Transcript))

	return &Turn{
		Number:     payload.Turn,
		Speaker:    resp.Speaker,
		Transcript: transcript,
		Audio:      resp.Audio,
	}, nil
}

// postJSON sends a JSON POST and returns the response body on 2xx
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// annotateQuestion appends the audience question to the transcript sent to
// the backend, with an instruction that it must be addressed before the
// conversation continues.
func annotateQuestion(transcript, question string) string {
	return fmt.Sprintf("%s\n\n[Audience question: %s] Address this question before continuing the conversation.",
		transcript, question)
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) incrementTotalRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		AvgResponseTime: c.avgResponseTime,
	}
}
