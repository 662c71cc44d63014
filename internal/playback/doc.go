// Package playback implements turn audio playback on top of the system
// speaker. It wraps raw PCM turn audio in a WAV container, decodes it into a
// sample stream, plays it to completion, and exposes a frequency-magnitude
// tap for the visualizer while a turn is playing.
package playback
