package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aymenfurter/ai-podcast-generator/internal/backend"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves scripted turns and records every request it sees
type fakeSource struct {
	mu          sync.Mutex
	script      string
	scriptErr   error
	scriptCalls int
	requests    []backend.TurnRequest
	fetchDelay  map[int]time.Duration // per-turn artificial latency
	failTurns   map[int]bool          // turns that fail to fetch
	maxTurns    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		script:     "## Talking Points",
		fetchDelay: make(map[int]time.Duration),
		failTurns:  make(map[int]bool),
		maxTurns:   backend.MaxTurns,
	}
}

func (f *fakeSource) GenerateScript(ctx context.Context, topic string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scriptCalls++
	return f.script, f.scriptErr
}

func (f *fakeSource) NextTurn(ctx context.Context, req backend.TurnRequest) (*backend.Turn, error) {
	if req.Turn >= f.maxTurns {
		return nil, backend.ErrCeilingReached
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	delay := f.fetchDelay[req.Turn]
	fail := f.failTurns[req.Turn]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fail {
		return nil, fmt.Errorf("turn %d fetch failed after 3 attempts", req.Turn)
	}

	speaker := "Dan"
	if req.Turn%2 == 1 {
		speaker = "Anna"
	}

	return &backend.Turn{
		Number:     req.Turn,
		Speaker:    speaker,
		Transcript: fmt.Sprintf("%s: Turn %d content.", speaker, req.Turn),
		Audio:      []byte{0x01, 0x02},
	}, nil
}

func (f *fakeSource) recordedRequests() []backend.TurnRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.TurnRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// fakePlayer records played turns; playback takes playTime per turn
type fakePlayer struct {
	mu       sync.Mutex
	played   []int
	playTime time.Duration
	failTurn int // turn number that fails to play, -1 for none
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{playTime: 5 * time.Millisecond, failTurn: -1}
}

func (f *fakePlayer) PlayTurn(ctx context.Context, turn *backend.Turn) error {
	f.mu.Lock()
	f.played = append(f.played, turn.Number)
	fail := turn.Number == f.failTurn
	f.mu.Unlock()

	if fail {
		return errors.New("decode failed")
	}

	select {
	case <-time.After(f.playTime):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakePlayer) playedTurns() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.played))
	copy(out, f.played)
	return out
}

// notifyRecorder collects notifications
type notifyRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (n *notifyRecorder) hooks() Hooks {
	return Hooks{
		OnNotify: func(text string, _ time.Duration) {
			n.mu.Lock()
			defer n.mu.Unlock()
			n.messages = append(n.messages, text)
		},
	}
}

func (n *notifyRecorder) count(substr string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if strings.Contains(m, substr) {
			c++
		}
	}
	return c
}

func newTestController(source TurnSource, player Player, hooks Hooks) *Controller {
	return NewController(Config{}, source, player, testLogger(), hooks, nil)
}

func TestFullSessionPlaysAllTurnsInOrder(t *testing.T) {
	source := newFakeSource()
	player := newFakePlayer()
	notify := &notifyRecorder{}

	ctrl := newTestController(source, player, notify.hooks())

	if err := ctrl.Run(context.Background(), "space elevators"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Strict sequential playback: 0..6, no repeats, no gaps
	played := player.playedTurns()
	if len(played) != backend.MaxTurns {
		t.Fatalf("Expected %d turns played, got %d: %v", backend.MaxTurns, len(played), played)
	}
	for i, turn := range played {
		if turn != i {
			t.Errorf("Position %d: expected turn %d, got %d", i, i, turn)
		}
	}

	snapshot := ctrl.GetSnapshot()
	if snapshot.State != "ended" {
		t.Errorf("Expected ended state, got %s", snapshot.State)
	}

	// Terminal state announced exactly once
	if got := notify.count("Podcast ended"); got != 1 {
		t.Errorf("Expected exactly 1 end announcement, got %d", got)
	}
}

func TestNoTurnFetchedTwice(t *testing.T) {
	source := newFakeSource()
	player := newFakePlayer()

	ctrl := newTestController(source, player, Hooks{})

	if err := ctrl.Run(context.Background(), "topic"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	seen := make(map[int]int)
	for _, req := range source.recordedRequests() {
		seen[req.Turn]++
	}

	for turn, count := range seen {
		if count != 1 {
			t.Errorf("Turn %d fetched %d times", turn, count)
		}
	}

	if len(seen) != backend.MaxTurns {
		t.Errorf("Expected %d distinct turns fetched, got %d", backend.MaxTurns, len(seen))
	}
}

func TestTranscriptAppendedBeforeNextFetch(t *testing.T) {
	source := newFakeSource()
	player := newFakePlayer()

	ctrl := newTestController(source, player, Hooks{})

	if err := ctrl.Run(context.Background(), "topic"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Every fetch for turn N+1 must carry turn N's transcript
	for _, req := range source.recordedRequests() {
		if req.Turn == 0 {
			if req.CombinedTranscript != "" {
				t.Errorf("Turn 0 fetch should carry empty transcript, got %q", req.CombinedTranscript)
			}
			continue
		}
		prior := fmt.Sprintf("Turn %d content.", req.Turn-1)
		if !strings.Contains(req.CombinedTranscript, prior) {
			t.Errorf("Fetch for turn %d missing prior turn transcript %q", req.Turn, prior)
		}
	}
}

func TestCombinedTranscriptAnnotation(t *testing.T) {
	source := newFakeSource()
	player := newFakePlayer()

	ctrl := newTestController(source, player, Hooks{})

	if err := ctrl.Run(context.Background(), "topic"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	combined := ctrl.CombinedTranscript()

	// Turn 0 lands plain; later turns carry their turn-number annotation
	if !strings.HasPrefix(combined, "Dan: Turn 0 content.") {
		t.Errorf("Expected transcript to open with turn 0 text, got %q", combined[:40])
	}
	for i := 1; i < backend.MaxTurns; i++ {
		marker := fmt.Sprintf("[Turn %d]", i)
		if !strings.Contains(combined, marker) {
			t.Errorf("Expected annotation %q in combined transcript", marker)
		}
	}
	if strings.Contains(combined, "[Turn 0]") {
		t.Error("Turn 0 should not carry a turn-number annotation")
	}
}

func TestPrefetchLagEndsSessionEarly(t *testing.T) {
	source := newFakeSource()
	source.fetchDelay[1] = 200 * time.Millisecond // prefetch slower than playback

	player := newFakePlayer()
	player.playTime = time.Millisecond

	notify := &notifyRecorder{}
	ctrl := newTestController(source, player, notify.hooks())

	if err := ctrl.Run(context.Background(), "topic"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	played := player.playedTurns()
	if len(played) != 1 || played[0] != 0 {
		t.Errorf("Expected only turn 0 played, got %v", played)
	}

	if got := notify.count("Podcast ended"); got != 1 {
		t.Errorf("Expected 1 end announcement, got %d", got)
	}

	if ctrl.GetSnapshot().State != "ended" {
		t.Errorf("Expected ended state, got %s", ctrl.GetSnapshot().State)
	}
}

func TestPrefetchFailureEndsSessionEarly(t *testing.T) {
	source := newFakeSource()
	source.failTurns[2] = true

	player := newFakePlayer()
	player.playTime = 50 * time.Millisecond // plenty of time for prefetch

	ctrl := newTestController(source, player, Hooks{})

	if err := ctrl.Run(context.Background(), "topic"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	played := player.playedTurns()
	if len(played) != 2 {
		t.Errorf("Expected turns 0 and 1 played, got %v", played)
	}
}

func TestNoTurnsAvailable(t *testing.T) {
	source := newFakeSource()
	source.failTurns[0] = true

	player := newFakePlayer()
	notify := &notifyRecorder{}

	ctrl := newTestController(source, player, notify.hooks())

	if err := ctrl.Run(context.Background(), "topic"); err == nil {
		t.Fatal("Expected error when turn 0 is unavailable")
	}

	if len(player.playedTurns()) != 0 {
		t.Errorf("Expected nothing played, got %v", player.playedTurns())
	}

	if got := notify.count("No turns available"); got != 1 {
		t.Errorf("Expected no-turns notification, got %d", got)
	}

	if ctrl.GetSnapshot().State != "idle" {
		t.Errorf("Expected idle state, got %s", ctrl.GetSnapshot().State)
	}
}

func TestScriptGenerationFailure(t *testing.T) {
	source := newFakeSource()
	source.scriptErr = errors.New("backend exploded")

	player := newFakePlayer()
	notify := &notifyRecorder{}

	ctrl := newTestController(source, player, notify.hooks())

	if err := ctrl.Run(context.Background(), "topic"); err == nil {
		t.Fatal("Expected error")
	}

	if ctrl.GetSnapshot().State != "idle" {
		t.Errorf("Expected return to idle, got %s", ctrl.GetSnapshot().State)
	}

	if got := notify.count("Failed to generate"); got != 1 {
		t.Errorf("Expected script failure notification, got %d", got)
	}

	if len(source.recordedRequests()) != 0 {
		t.Error("No turn fetches should happen after script failure")
	}
}

func TestReentrantRunIsNoOp(t *testing.T) {
	source := newFakeSource()
	player := newFakePlayer()
	player.playTime = 30 * time.Millisecond

	ctrl := newTestController(source, player, Hooks{})

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Run(context.Background(), "topic")
	}()

	// Give the first session time to start playing
	time.Sleep(20 * time.Millisecond)

	if err := ctrl.Run(context.Background(), "topic"); err != nil {
		t.Errorf("Re-entrant Run should be a silent no-op, got %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("First Run failed: %v", err)
	}

	source.mu.Lock()
	calls := source.scriptCalls
	source.mu.Unlock()
	if calls != 1 {
		t.Errorf("Expected 1 script generation, got %d", calls)
	}
}

func TestQuestionLastWriteWins(t *testing.T) {
	source := newFakeSource()
	player := newFakePlayer()

	ctrl := newTestController(source, player, Hooks{})

	ctrl.AskQuestion("question A")
	ctrl.AskQuestion("question B")

	if err := ctrl.Run(context.Background(), "topic"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	requests := source.recordedRequests()

	// Only B survives, attached to the first fetch, consumed exactly once
	withQuestion := 0
	for _, req := range requests {
		if req.AudienceQuestion == "question A" {
			t.Error("Overwritten question A should never be sent")
		}
		if req.AudienceQuestion != "" {
			withQuestion++
			if req.AudienceQuestion != "question B" {
				t.Errorf("Unexpected question %q", req.AudienceQuestion)
			}
		}
	}

	if withQuestion != 1 {
		t.Errorf("Expected question attached to exactly 1 fetch, got %d", withQuestion)
	}
}

func TestQuestionConsumedOnFailedFetch(t *testing.T) {
	source := newFakeSource()
	source.failTurns[0] = true

	player := newFakePlayer()
	ctrl := newTestController(source, player, Hooks{})

	ctrl.AskQuestion("lost question")
	ctrl.Run(context.Background(), "topic")

	// The slot is cleared once per fetch regardless of outcome
	if ctrl.GetSnapshot().QuestionPending {
		t.Error("Question should be consumed even when the fetch fails")
	}
}

func TestPlaybackFailureStopsSession(t *testing.T) {
	source := newFakeSource()
	player := newFakePlayer()
	player.failTurn = 1

	notify := &notifyRecorder{}
	ctrl := newTestController(source, player, notify.hooks())

	if err := ctrl.Run(context.Background(), "topic"); err == nil {
		t.Fatal("Expected playback error to surface")
	}

	played := player.playedTurns()
	if len(played) != 2 {
		t.Errorf("Expected playback attempts for turns 0 and 1 only, got %v", played)
	}

	if got := notify.count("playback failed"); got != 1 {
		t.Errorf("Expected playback failure notification, got %d", got)
	}
}

func TestSnapshotDuringIdle(t *testing.T) {
	ctrl := newTestController(newFakeSource(), newFakePlayer(), Hooks{})

	snapshot := ctrl.GetSnapshot()
	if snapshot.State != "idle" {
		t.Errorf("Expected idle, got %s", snapshot.State)
	}
	if snapshot.IsPlaying || snapshot.PreloadReady || snapshot.QuestionPending {
		t.Errorf("Fresh controller should have no activity flags set: %+v", snapshot)
	}
	if snapshot.MaxTurns != backend.MaxTurns {
		t.Errorf("Expected max turns %d, got %d", backend.MaxTurns, snapshot.MaxTurns)
	}
}
