// Package assertions evaluates expectations against HTTP responses.
//
// Supported subjects:
//   - status and duration
//   - header <Name>
//   - body and body.<path> (gjson paths, bracket indexes allowed)
//
// Operators cover equality, numeric comparison, string matching, presence,
// length, array membership (includes, includesAll, in), JSON types and JSON
// Schema validation against an inline document or a schema file.
package assertions
