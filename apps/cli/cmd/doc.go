// Package cmd implements the postcheck CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the API scenarios against a base URL
//   - list: Display the scenarios in run order
//   - mock: Serve an in-process blog API to run against
//   - stress: Repeat the read-only scenarios under load
//   - init: Write a starter postcheck.yaml
//   - version: Show postcheck version information
//
// Settings come from postcheck.yaml, then POSTCHECK_* environment
// variables, then flags, each layer overriding the one before.
package cmd
