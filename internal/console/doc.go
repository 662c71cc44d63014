// Package console renders player feedback on a terminal: status lines,
// retry and session notifications, and a frequency-bar visualization of
// the audio being played.
package console
