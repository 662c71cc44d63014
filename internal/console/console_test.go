package console

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRenderBarsLevels(t *testing.T) {
	tests := []struct {
		name       string
		magnitudes []float64
		expected   string
	}{
		{
			name:       "silence renders lowest bars",
			magnitudes: []float64{0, 0, 0},
			expected:   "▁▁▁",
		},
		{
			name:       "full scale renders highest bar",
			magnitudes: []float64{0.5},
			expected:   "█",
		},
		{
			name:       "above full scale clamps",
			magnitudes: []float64{1.7},
			expected:   "█",
		},
		{
			name:       "negative clamps to lowest",
			magnitudes: []float64{-0.1},
			expected:   "▁",
		},
		{
			name:       "mixed levels",
			magnitudes: []float64{0, 0.25, 0.49},
			expected:   "▁▅█",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderBars(tt.magnitudes); got != tt.expected {
				t.Errorf("RenderBars(%v) = %q, expected %q", tt.magnitudes, got, tt.expected)
			}
		})
	}
}

func TestRenderBarsWidth(t *testing.T) {
	bars := RenderBars(make([]float64, 16))
	if n := len([]rune(bars)); n != 16 {
		t.Errorf("Expected 16 bars, got %d", n)
	}
}

func TestNotifyPrintsOwnLine(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Notify("Podcast ended. Thanks for listening!", 10*time.Second)

	if !strings.Contains(buf.String(), "Podcast ended. Thanks for listening!\n") {
		t.Errorf("Expected notification line, got %q", buf.String())
	}
}

func TestTransientStatusOverwritesInPlace(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Status("Generating podcast script...", true)

	out := buf.String()
	if !strings.HasPrefix(out, "\r") {
		t.Errorf("Transient status should rewrite the line, got %q", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Errorf("Transient status should not emit a newline, got %q", out)
	}
}

func TestClearStatusErasesDirtyLine(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Status("working", true)
	buf.Reset()
	c.ClearStatus()

	if !strings.Contains(buf.String(), "\033[K") {
		t.Errorf("Expected erase sequence, got %q", buf.String())
	}
}

func TestClearStatusNoOpWhenClean(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.ClearStatus()

	if buf.Len() != 0 {
		t.Errorf("Expected no output on clean line, got %q", buf.String())
	}
}

func TestRetryNoticeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.RetryNotice("Retrying turn fetch (attempt 2)...")
	if !strings.Contains(buf.String(), "Retrying turn fetch") {
		t.Errorf("Expected retry notice, got %q", buf.String())
	}

	buf.Reset()
	c.ClearRetryNotice()
	if !strings.Contains(buf.String(), "\033[K") {
		t.Errorf("Expected erase sequence, got %q", buf.String())
	}
}

func TestShowTurn(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.ShowTurn("Dan", "Dan: Welcome to the show.")

	out := buf.String()
	if !strings.Contains(out, "[Dan]") {
		t.Errorf("Expected speaker heading, got %q", out)
	}
	if !strings.Contains(out, "Dan: Welcome to the show.") {
		t.Errorf("Expected transcript, got %q", out)
	}
}

func TestRenderFrameEmptyIsNoOp(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.RenderFrame(nil)

	if buf.Len() != 0 {
		t.Errorf("Expected no output for empty frame, got %q", buf.String())
	}
}

func TestHooksRouteToConsole(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	hooks := c.Hooks()
	if hooks.OnStatus == nil || hooks.OnClearStatus == nil || hooks.OnNotify == nil {
		t.Fatal("All hooks should be wired")
	}

	hooks.OnNotify("hello", time.Second)
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("Hook output missing, got %q", buf.String())
	}
}
