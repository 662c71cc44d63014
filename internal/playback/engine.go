package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/aymenfurter/ai-podcast-generator/internal/audio"
	"github.com/aymenfurter/ai-podcast-generator/internal/backend"
)

// ErrDecodeFailed indicates the turn's audio could not be decoded into a
// playable sample stream. Terminal for that turn; never retried.
var ErrDecodeFailed = errors.New("audio decode failed")

// Config contains playback engine configuration
type Config struct {
	SampleRate     int           // PCM sample rate of turn audio (24000 Hz)
	Channels       int           // Channel count of turn audio (mono)
	AnalysisWindow int           // Samples per visualizer analysis window
	FrameInterval  time.Duration // Visualizer frame period
	SpeakerBuffer  time.Duration // Speaker buffer length

	// OnFrame receives frequency-magnitude bins once per frame while a
	// turn is playing. Optional.
	OnFrame func(magnitudes []float64)
}

// Engine plays one turn at a time, start to finish. Playback cannot be
// paused or seeked; the unit of control is a whole turn.
type Engine struct {
	config Config
	logger *slog.Logger

	speakerOnce sync.Once
	speakerErr  error
}

// NewEngine creates a playback engine. Zero config fields get defaults
// matching the backend's audio format.
func NewEngine(config Config, logger *slog.Logger) *Engine {
	if config.SampleRate <= 0 {
		config.SampleRate = 24000
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.AnalysisWindow <= 0 {
		config.AnalysisWindow = 32
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = 33 * time.Millisecond
	}
	if config.SpeakerBuffer <= 0 {
		config.SpeakerBuffer = 250 * time.Millisecond
	}

	return &Engine{
		config: config,
		logger: logger,
	}
}

// PlayTurn decodes and plays a turn's audio, blocking until natural
// completion or context cancellation. While playing it feeds the OnFrame
// hook one set of frequency magnitudes per frame interval.
func (e *Engine) PlayTurn(ctx context.Context, turn *backend.Turn) error {
	if turn == nil || len(turn.Audio) == 0 {
		e.logger.Error("Refusing to play turn without audio payload")
		return fmt.Errorf("turn has no audio payload")
	}

	wavData := audio.EncodePCM(turn.Audio, e.config.SampleRate, e.config.Channels)

	streamer, format, err := decodeAudio(wavData)
	if err != nil {
		return err
	}
	defer streamer.Close()

	if err := e.initSpeaker(format.SampleRate); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	e.logger.Info("Playing turn",
		slog.Int("turn", turn.Number),
		slog.String("speaker", turn.Speaker),
		slog.Int("audio_bytes", len(turn.Audio)),
	)

	tap := NewTap(streamer, e.config.AnalysisWindow)

	done := make(chan struct{})
	speaker.Play(beep.Seq(tap, beep.Callback(func() {
		close(done)
	})))

	ticker := time.NewTicker(e.config.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			speaker.Clear()
			return ctx.Err()
		case <-ticker.C:
			if e.config.OnFrame != nil {
				e.config.OnFrame(Magnitudes(tap.Window(e.config.AnalysisWindow)))
			}
		}
	}
}

// initSpeaker opens the output device once, sized for the turn sample rate
func (e *Engine) initSpeaker(sampleRate beep.SampleRate) error {
	e.speakerOnce.Do(func() {
		e.speakerErr = speaker.Init(sampleRate, sampleRate.N(e.config.SpeakerBuffer))
	})
	return e.speakerErr
}

// decodeAudio turns an encoded WAV buffer into a playable sample stream
func decodeAudio(wavData []byte) (beep.StreamSeekCloser, beep.Format, error) {
	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(wavData)))
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrDecodeFailed, err)
	}
	return streamer, format, nil
}
