package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"gopkg.in/yaml.v3"
)

// TAPFormatter writes TAP version 13. Failed scenarios carry a YAML
// diagnostic block, passed ones their log lines as comments.
type TAPFormatter struct {
	writer  io.Writer
	results []*workflow.ScenarioResult
	bailOut []string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

// tapDiagnostic is the YAML block below a "not ok" line.
type tapDiagnostic struct {
	Message    string   `yaml:"message,omitempty"`
	Severity   string   `yaml:"severity"`
	Step       string   `yaml:"step,omitempty"`
	Failures   []string `yaml:"failures,omitempty"`
	DurationMs int64    `yaml:"duration_ms"`
}

func (f *TAPFormatter) FormatResult(result *workflow.RunResult) {
	f.results = append(f.results, result.Results...)
}

// FormatError records a run-level error; Flush reports it as "Bail out!".
func (f *TAPFormatter) FormatError(err error) {
	f.bailOut = append(f.bailOut, err.Error())
}

func (f *TAPFormatter) FormatHeader(version string) {}

func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	var b strings.Builder
	b.WriteString("TAP version 13\n")
	fmt.Fprintf(&b, "1..%d\n", len(f.results))

	for i, r := range f.results {
		n := i + 1
		switch {
		case r.Skipped:
			reason := r.SkipReason
			if reason == "" || reason == "filtered out" {
				reason = "SKIP"
			}
			fmt.Fprintf(&b, "ok %d - %s # SKIP %s\n", n, r.Name, reason)
		case r.Passed:
			fmt.Fprintf(&b, "ok %d - %s\n", n, r.Name)
			for _, line := range r.Logs {
				fmt.Fprintf(&b, "# %s\n", line)
			}
		default:
			fmt.Fprintf(&b, "not ok %d - %s\n", n, r.Name)
			block, err := diagnosticBlock(r)
			if err != nil {
				return err
			}
			b.WriteString(block)
		}
	}

	for _, msg := range f.bailOut {
		fmt.Fprintf(&b, "Bail out! %s\n", strings.ReplaceAll(msg, "\n", " "))
	}
	fmt.Fprintf(&b, "# time %s\n", totalDuration.Round(time.Millisecond))

	_, err := io.WriteString(f.writer, b.String())
	return err
}

// diagnosticBlock renders r's failure as an indented YAML document framed
// by "---" and "...".
func diagnosticBlock(r *workflow.ScenarioResult) (string, error) {
	d := tapDiagnostic{Severity: "fail", DurationMs: r.Duration.Milliseconds()}
	if r.Error != nil {
		d.Message = r.Error.Error()
		if workflow.IsNetworkError(r.Error) {
			d.Severity = "error"
		}
	}
	if st := failedStep(r); st != nil {
		d.Step = st.Name
		d.Failures = failureLines(st)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return "", fmt.Errorf("encoding TAP diagnostic: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("  ---\n")
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("  ...\n")
	return b.String(), nil
}
