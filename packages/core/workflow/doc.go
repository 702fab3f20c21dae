// Package workflow runs ordered scenarios of chained HTTP steps.
//
// A Scenario is a named list of Steps. Each Step builds a request from the
// shared State, sends it, evaluates assertions and stores captured values
// for the steps after it. Scenarios run one at a time in declaration order;
// a scenario whose dependency failed is skipped.
//
// The runner provides:
//   - Name and tag filtering
//   - Bail on first failure
//   - Waiting for the target service before the first scenario
//   - A per-scenario log surfaced in the results
package workflow
