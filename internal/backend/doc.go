// Package backend implements the HTTP client for the podcast generation API.
// It requests the one-off podcast script, fetches conversational turns with a
// fixed-delay retry policy, normalizes turn transcripts, and enforces the
// hard turn-count ceiling.
package backend
