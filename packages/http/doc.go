// Package http provides the HTTP client used by postcheck scenarios.
//
// It wraps the standard library's http package with:
//   - Configurable timeouts, proxies and TLS validation
//   - Redirect handling
//   - Repeated query parameters and JSON request bodies
//   - Bearer token authorization
//   - Response helpers and curl reproductions for verbose output
package http
