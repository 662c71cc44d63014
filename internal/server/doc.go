// Package server implements the HTTP control API for the podcast player:
// session monitoring, audience question submission, configuration
// inspection, and Prometheus metrics.
package server
