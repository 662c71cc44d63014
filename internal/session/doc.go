// Package session implements the podcast session controller: the state
// machine that sequences script generation, per-turn fetch and playback,
// one-turn-ahead prefetch, audience question handling, and session
// termination. All sequencing state is owned here; collaborators receive
// values, never references into controller state.
package session
