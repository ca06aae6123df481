// Package config provides configuration loading and validation for the
// voice QA service. It handles YAML-based configuration with per-section
// validation and environment variable overrides for deployment settings.
package config
