package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aymenfurter/ai-podcast-generator/internal/backend"
	"github.com/aymenfurter/ai-podcast-generator/internal/metrics"
)

// State identifies where a session is in its lifecycle
type State int

const (
	StateIdle State = iota
	StateGeneratingScript
	StatePlaying
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGeneratingScript:
		return "generating_script"
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// TurnSource produces the podcast script and conversational turns.
type TurnSource interface {
	GenerateScript(ctx context.Context, topic string) (string, error)
	NextTurn(ctx context.Context, req backend.TurnRequest) (*backend.Turn, error)
}

// Player plays one turn to completion.
type Player interface {
	PlayTurn(ctx context.Context, turn *backend.Turn) error
}

// Hooks route user-visible session feedback to whatever surface hosts the
// player. All fields are optional.
type Hooks struct {
	OnStatus      func(text string, transient bool)
	OnClearStatus func()
	OnNotify      func(text string, duration time.Duration)
}

// Config contains session controller configuration
type Config struct {
	MaxTurns int // Turn ceiling; turns 0..MaxTurns-1 play
}

// Controller drives one podcast session at a time. It owns the script, the
// combined transcript accumulator, the turn counter, the preloaded-turn slot,
// and the pending audience question; everything mutates under one mutex.
type Controller struct {
	source  TurnSource
	player  Player
	logger  *slog.Logger
	hooks   Hooks
	metrics *metrics.Metrics

	maxTurns int

	mu              sync.Mutex
	state           State
	script          string
	combined        string
	currentTurn     int
	playing         bool
	preloading      bool
	preloaded       *backend.Turn
	pendingQuestion string
}

// Snapshot is a point-in-time view of session state for monitoring
type Snapshot struct {
	State            string `json:"state"`
	CurrentTurn      int    `json:"current_turn"`
	MaxTurns         int    `json:"max_turns"`
	IsPlaying        bool   `json:"is_playing"`
	PreloadReady     bool   `json:"preload_ready"`
	QuestionPending  bool   `json:"question_pending"`
	TranscriptLength int    `json:"transcript_length"`
}

// NewController creates a session controller
func NewController(config Config, source TurnSource, player Player,
	logger *slog.Logger, hooks Hooks, m *metrics.Metrics) *Controller {

	maxTurns := config.MaxTurns
	if maxTurns <= 0 {
		maxTurns = backend.MaxTurns
	}

	return &Controller{
		source:   source,
		player:   player,
		logger:   logger,
		hooks:    hooks,
		metrics:  m,
		maxTurns: maxTurns,
		state:    StateIdle,
	}
}

// Run executes one full podcast session for a topic: script generation,
// then sequential turn playback with one-turn-ahead prefetch, until the
// ceiling is reached or no further turn is available. Re-entrant calls
// while a session is active are no-ops.
func (c *Controller) Run(ctx context.Context, topic string) error {
	c.mu.Lock()
	if c.state == StateGeneratingScript || c.state == StatePlaying {
		c.mu.Unlock()
		c.logger.Warn("Session already active, ignoring start request")
		return nil
	}
	c.state = StateGeneratingScript
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SessionsStarted.Inc()
		c.metrics.ScriptRequests.Inc()
	}

	c.status("Generating podcast script...", false)
	script, err := c.source.GenerateScript(ctx, topic)
	c.clearStatus()
	if err != nil {
		c.setState(StateIdle)
		c.notify("Failed to generate podcast script.", 5*time.Second)
		if c.metrics != nil {
			c.metrics.ScriptFailures.Inc()
		}
		return fmt.Errorf("script generation: %w", err)
	}

	c.mu.Lock()
	c.script = script
	c.combined = ""
	c.currentTurn = 0
	c.preloaded = nil
	c.state = StatePlaying
	c.mu.Unlock()

	c.logger.Info("Session started",
		slog.String("topic", topic),
		slog.Int("script_length", len(script)),
		slog.Int("max_turns", c.maxTurns),
	)

	return c.playAll(ctx)
}

// playAll runs the per-turn progression to a terminal state
func (c *Controller) playAll(ctx context.Context) error {
	turn, err := c.fetchTurn(ctx, 0)
	if err != nil || turn == nil {
		c.setState(StateIdle)
		c.notify("No turns available for playback.", 5*time.Second)
		if err != nil && !errors.Is(err, backend.ErrCeilingReached) {
			return fmt.Errorf("initial turn fetch: %w", err)
		}
		return nil
	}

	// Turn 0's transcript lands before the first prefetch is issued, so the
	// backend always sees full prior context.
	c.appendTranscript(turn.Transcript)

	current := turn
	for {
		if current.Number+1 < c.maxTurns {
			c.startPrefetch(ctx, current.Number+1)
		}

		if err := c.playTurn(ctx, current); err != nil {
			return err
		}

		next := current.Number + 1
		c.mu.Lock()
		c.currentTurn = next
		c.mu.Unlock()

		if next >= c.maxTurns {
			c.announceEnd()
			return nil
		}

		preloaded := c.takePreloaded()
		if preloaded == nil {
			// Prefetch lagged or failed. End early rather than stall;
			// the design never blocks waiting for a late prefetch.
			if c.metrics != nil {
				c.metrics.PrefetchMisses.Inc()
			}
			c.logger.Info("No preloaded turn available, ending session",
				slog.Int("turn", next),
			)
			c.announceEnd()
			return nil
		}

		c.appendTurnTranscript(preloaded)
		current = preloaded
	}
}

// playTurn plays one turn to completion, tracking the playing flag
func (c *Controller) playTurn(ctx context.Context, turn *backend.Turn) error {
	c.mu.Lock()
	c.playing = true
	c.mu.Unlock()

	start := time.Now()
	err := c.player.PlayTurn(ctx, turn)

	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			c.setState(StateEnded)
			return ctx.Err()
		}
		c.setState(StateEnded)
		c.notify(fmt.Sprintf("Audio playback failed on turn %d.", turn.Number), 5*time.Second)
		if c.metrics != nil {
			c.metrics.DecodeFailures.Inc()
		}
		return fmt.Errorf("playback of turn %d: %w", turn.Number, err)
	}

	if c.metrics != nil {
		c.metrics.TurnsPlayed.Inc()
		c.metrics.PlaybackDuration.Observe(time.Since(start).Seconds())
	}

	return nil
}

// fetchTurn fetches one turn, consuming the pending audience question
// exactly once regardless of the fetch outcome.
func (c *Controller) fetchTurn(ctx context.Context, turnNumber int) (*backend.Turn, error) {
	c.mu.Lock()
	question := c.pendingQuestion
	c.pendingQuestion = ""
	req := backend.TurnRequest{
		Script:             c.script,
		CombinedTranscript: c.combined,
		Turn:               turnNumber,
		AudienceQuestion:   question,
	}
	c.mu.Unlock()

	turn, err := c.source.NextTurn(ctx, req)
	if c.metrics != nil {
		if err == nil && turn != nil {
			c.metrics.TurnsFetched.Inc()
		} else if err != nil && !errors.Is(err, backend.ErrCeilingReached) {
			c.metrics.FetchFailures.Inc()
		}
	}

	return turn, err
}

// startPrefetch fetches a turn into the preloaded slot, concurrently with
// the current turn's playback. At most one prefetch is in flight.
func (c *Controller) startPrefetch(ctx context.Context, turnNumber int) {
	c.mu.Lock()
	if c.preloading {
		c.mu.Unlock()
		return
	}
	c.preloading = true
	c.mu.Unlock()

	go func() {
		turn, err := c.fetchTurn(ctx, turnNumber)

		c.mu.Lock()
		c.preloading = false
		if err == nil && turn != nil {
			c.preloaded = turn
		}
		c.mu.Unlock()

		if err != nil && !errors.Is(err, backend.ErrCeilingReached) {
			c.logger.Warn("Prefetch failed",
				slog.Int("turn", turnNumber),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// takePreloaded atomically claims and clears the preloaded-turn slot
func (c *Controller) takePreloaded() *backend.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn := c.preloaded
	c.preloaded = nil
	return turn
}

// AskQuestion stores an audience question to be woven into the next fetched
// turn. Only one question can be pending; a new submission before the
// previous is consumed overwrites it.
func (c *Controller) AskQuestion(question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return
	}

	c.mu.Lock()
	c.pendingQuestion = question
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.QuestionsSubmitted.Inc()
	}

	c.logger.Info("Audience question queued", slog.Int("length", len(question)))
	c.notify("Your question will be addressed shortly.", 3*time.Second)
}

// appendTranscript appends plain transcript text to the accumulator
func (c *Controller) appendTranscript(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.combined == "" {
		c.combined = text
		return
	}
	c.combined += "\n\n" + text
}

// appendTurnTranscript appends a turn's transcript annotated with its number
func (c *Controller) appendTurnTranscript(turn *backend.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.combined += fmt.Sprintf("\n\n[Turn %d] %s", turn.Number, turn.Transcript)
}

// announceEnd moves the session to the terminal state, exactly once
func (c *Controller) announceEnd() {
	c.mu.Lock()
	if c.state == StateEnded {
		c.mu.Unlock()
		return
	}
	c.state = StateEnded
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SessionsEnded.Inc()
	}

	c.logger.Info("Podcast ended")
	c.notify("Podcast ended. Thanks for listening!", 10*time.Second)
}

// GetSnapshot returns a point-in-time view of session state
func (c *Controller) GetSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		State:            c.state.String(),
		CurrentTurn:      c.currentTurn,
		MaxTurns:         c.maxTurns,
		IsPlaying:        c.playing,
		PreloadReady:     c.preloaded != nil,
		QuestionPending:  c.pendingQuestion != "",
		TranscriptLength: len(c.combined),
	}
}

// CombinedTranscript returns the transcript accumulated so far
func (c *Controller) CombinedTranscript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.combined
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) status(text string, transient bool) {
	if c.hooks.OnStatus != nil {
		c.hooks.OnStatus(text, transient)
	}
}

func (c *Controller) clearStatus() {
	if c.hooks.OnClearStatus != nil {
		c.hooks.OnClearStatus()
	}
}

func (c *Controller) notify(text string, duration time.Duration) {
	if c.hooks.OnNotify != nil {
		c.hooks.OnNotify(text, duration)
	}
}
