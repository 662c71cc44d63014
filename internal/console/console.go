package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aymenfurter/ai-podcast-generator/internal/session"
)

// barLevels maps normalized magnitudes to terminal block characters
var barLevels = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// fullScale is the magnitude a full-amplitude tone produces in one bin
const fullScale = 0.5

// Console writes player feedback to a terminal. Frame rendering and
// notifications share one line, so all writes serialize under a mutex.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	status      string
	retryNotice string
	lineDirty   bool
}

// New creates a console writing to out
func New(out io.Writer) *Console {
	return &Console{out: out}
}

// Status displays a status line. Transient statuses overwrite in place.
func (c *Console) Status(text string, transient bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = text
	if transient {
		c.overwriteLine(text)
		return
	}
	c.clearLine()
	fmt.Fprintln(c.out, text)
}

// ClearStatus removes the current status line
func (c *Console) ClearStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = ""
	c.clearLine()
}

// RetryNotice displays a transient retry message
func (c *Console) RetryNotice(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.retryNotice = text
	c.overwriteLine(text)
}

// ClearRetryNotice removes the retry message
func (c *Console) ClearRetryNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.retryNotice = ""
	c.clearLine()
}

// Notify prints a notification on its own line
func (c *Console) Notify(text string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLine()
	fmt.Fprintln(c.out, text)
}

// ShowTurn prints a turn's speaker heading and transcript
func (c *Console) ShowTurn(speaker, transcript string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLine()
	fmt.Fprintf(c.out, "\n[%s]\n%s\n", speaker, transcript)
}

// RenderFrame draws one visualization frame from frequency magnitudes
func (c *Console) RenderFrame(magnitudes []float64) {
	if len(magnitudes) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.overwriteLine(RenderBars(magnitudes))
}

// Hooks returns session hooks routed to this console
func (c *Console) Hooks() session.Hooks {
	return session.Hooks{
		OnStatus:      c.Status,
		OnClearStatus: c.ClearStatus,
		OnNotify:      c.Notify,
	}
}

// overwriteLine rewrites the current terminal line in place
func (c *Console) overwriteLine(text string) {
	fmt.Fprintf(c.out, "\r\033[K%s", text)
	c.lineDirty = true
}

// clearLine erases the current terminal line if anything was drawn on it
func (c *Console) clearLine() {
	if !c.lineDirty {
		return
	}
	fmt.Fprint(c.out, "\r\033[K")
	c.lineDirty = false
}

// RenderBars converts frequency magnitudes to a block-character bar string
func RenderBars(magnitudes []float64) string {
	var b strings.Builder
	b.Grow(len(magnitudes) * 3) // block runes are 3 bytes in UTF-8

	for _, m := range magnitudes {
		level := int(m / fullScale * float64(len(barLevels)))
		if level >= len(barLevels) {
			level = len(barLevels) - 1
		}
		if level < 0 {
			level = 0
		}
		b.WriteRune(barLevels[level])
	}

	return b.String()
}
