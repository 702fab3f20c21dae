// Package output renders run results as console text, JSON, JUnit XML or
// TAP 13. Use New to pick a formatter by name. JUnit and TAP buffer
// results and write everything on Flush.
package output
