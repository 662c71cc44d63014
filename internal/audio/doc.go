// Package audio provides minimal WAV container encoding for raw PCM turn audio.
// It wraps headerless little-endian 16-bit PCM bytes in a 44-byte RIFF header
// so a generic WAV decoder can consume them, and offers validation and
// inspection helpers for the encoded result.
package audio
