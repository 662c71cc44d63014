package playback

import (
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
)

// Tap is a streamer wrapper that copies samples into a ring buffer so the
// visualizer can read the most recent analysis window while audio flows to
// the speaker.
type Tap struct {
	s    beep.Streamer
	mu   sync.Mutex
	buf  []float64
	pos  int
	size int
}

// NewTap wraps a streamer with a ring buffer of the given size.
func NewTap(s beep.Streamer, bufSize int) *Tap {
	return &Tap{
		s:    s,
		buf:  make([]float64, bufSize),
		size: bufSize,
	}
}

// Stream passes audio through while capturing a mono mix into the ring buffer.
func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	t.mu.Lock()
	for i := 0; i < n; i++ {
		t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
	return n, ok
}

// Err returns the underlying streamer's error.
func (t *Tap) Err() error {
	return t.s.Err()
}

// Window returns the last n captured samples in chronological order.
func (t *Tap) Window(n int) []float64 {
	if n > t.size {
		n = t.size
	}
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}

// Magnitudes computes frequency-magnitude bins over an analysis window via a
// direct DFT. Returns len(window)/2 bins; a full-scale tone at a bin
// frequency yields magnitude 0.5 at that bin.
func Magnitudes(window []float64) []float64 {
	n := len(window)
	if n == 0 {
		return nil
	}

	bins := make([]float64, n/2)
	for k := range bins {
		var re, im float64
		for i, s := range window {
			angle := 2 * math.Pi * float64(k) * float64(i) / float64(n)
			re += s * math.Cos(angle)
			im -= s * math.Sin(angle)
		}
		bins[k] = math.Sqrt(re*re+im*im) / float64(n)
	}

	return bins
}
