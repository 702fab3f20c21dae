package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
)

type Formatter interface {
	FormatHeader(version string)
	FormatResult(result *workflow.RunResult)
	FormatError(err error)
}

// Flushable is implemented by formatters that write everything at the end.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Options configures New.
type Options struct {
	Writer  io.Writer
	Verbose int
	NoColor bool
	// ShowSecrets prints bearer tokens in curl reproductions.
	ShowSecrets bool
}

// New returns the formatter for format: console, json, junit or tap.
func New(format string, opts Options) (Formatter, error) {
	switch format {
	case "", "console":
		consoleOpts := []ConsoleOption{
			WithVerbose(opts.Verbose),
			WithNoColor(opts.NoColor),
			WithShowSecrets(opts.ShowSecrets),
		}
		if opts.Writer != nil {
			consoleOpts = append(consoleOpts, WithWriter(opts.Writer))
		}
		return NewConsoleFormatter(consoleOpts...), nil
	case "json":
		var jsonOpts []JSONOption
		if opts.Writer != nil {
			jsonOpts = append(jsonOpts, JSONWithWriter(opts.Writer))
		}
		return NewJSONFormatter(jsonOpts...), nil
	case "junit":
		var junitOpts []JUnitOption
		if opts.Writer != nil {
			junitOpts = append(junitOpts, JUnitWithWriter(opts.Writer))
		}
		return NewJUnitFormatter(junitOpts...), nil
	case "tap":
		var tapOpts []TAPOption
		if opts.Writer != nil {
			tapOpts = append(tapOpts, TAPWithWriter(opts.Writer))
		}
		return NewTAPFormatter(tapOpts...), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want console, json, junit or tap)", format)
	}
}

// failedStep returns the step that stopped a failed scenario.
func failedStep(r *workflow.ScenarioResult) *workflow.StepResult {
	for _, st := range r.Steps {
		if !st.Passed {
			return st
		}
	}
	return nil
}

// failureLines describes the failed assertions of a step, one per line.
func failureLines(st *workflow.StepResult) []string {
	if st == nil {
		return nil
	}
	var lines []string
	for _, a := range st.Assertions {
		if !a.Passed {
			lines = append(lines, fmt.Sprintf("%s %s: expected %v, got %v",
				a.Subject, a.Operator, formatValue(a.Expected, 100), formatValue(a.Actual, 100)))
		}
	}
	return lines
}

// formatValue shortens v for display. Arrays and objects are summarized by
// size, everything else is cut at maxLen bytes.
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case map[string]string:
		return fmt.Sprintf("{map with %d entries}", len(val))
	}
	s := fmt.Sprint(v)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
