// Package config provides configuration loading and validation for the
// podcast player. It handles YAML-based configuration with per-section
// struct validation, plus environment overrides for backend credentials.
package config
