// Package env handles environment files and variable resolution for postcheck.
//
// It provides functionality for:
//   - Loading environment files (.env, .env.local)
//   - Reading POSTCHECK_* overrides from the process environment
//   - Expanding {{variable}} and {{$ENV_VAR}} placeholders in config values
package env
