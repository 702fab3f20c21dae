// Package config handles configuration loading and management for postcheck.
//
// It provides functionality for:
//   - Loading configuration from postcheck.yaml or postcheck.config.json
//   - Default configuration values
//   - Overrides from POSTCHECK_* environment variables
package config
