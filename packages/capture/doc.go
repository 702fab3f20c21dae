// Package capture extracts values from HTTP responses for use in later steps.
//
// It supports capturing values from:
//   - Response body (gjson paths)
//   - Response headers
//   - Response status code and duration
//
// A scenario captures the id of a post it created and uses it to address
// the same post in the requests that follow.
package capture
