package output

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"github.com/fatih/color"
)

// palette holds the colors of one formatter so that --no-color does not
// leak into other writers through color.NoColor.
type palette struct {
	pass, fail, skip, timing, strong, dim *color.Color
}

func newPalette(noColor bool) palette {
	mk := func(attr color.Attribute) *color.Color {
		c := color.New(attr)
		if noColor {
			c.DisableColor()
		}
		return c
	}
	return palette{
		pass:   mk(color.FgGreen),
		fail:   mk(color.FgRed),
		skip:   mk(color.FgYellow),
		timing: mk(color.FgCyan),
		strong: mk(color.Bold),
		dim:    mk(color.Faint),
	}
}

// ConsoleFormatter prints results for a terminal as they arrive.
type ConsoleFormatter struct {
	w           io.Writer
	verbose     int
	noColor     bool
	showSecrets bool
	c           palette
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{w: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	f.c = newPalette(f.noColor)
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) { f.w = w }
}

// WithVerbose sets the detail level: 1 prints every step with its status,
// 2 adds a curl reproduction and the captures of each step.
func WithVerbose(level int) ConsoleOption {
	return func(f *ConsoleFormatter) { f.verbose = level }
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) { f.noColor = nc }
}

func WithShowSecrets(show bool) ConsoleOption {
	return func(f *ConsoleFormatter) { f.showSecrets = show }
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	fmt.Fprintf(f.w, "%s %s\n", f.c.strong.Sprint("postcheck"), version)
}

func (f *ConsoleFormatter) FormatError(err error) {
	fmt.Fprintf(f.w, "%s %v\n", f.c.fail.Sprint("Error:"), err)
}

func (f *ConsoleFormatter) FormatResult(result *workflow.RunResult) {
	fmt.Fprintf(f.w, "\n%s\n\n", f.c.strong.Sprint("Running: "+result.BaseURL))

	for _, r := range result.Results {
		f.scenario(r)
	}

	var counts []string
	for _, part := range []struct {
		n     int
		label string
		c     *color.Color
	}{
		{result.Passed, "passed", f.c.pass},
		{result.Failed, "failed", f.c.fail},
		{result.Skipped, "skipped", f.c.skip},
	} {
		if part.n > 0 {
			counts = append(counts, part.c.Sprintf("%d %s", part.n, part.label))
		}
	}
	counts = append(counts, fmt.Sprintf("%d total", result.Passed+result.Failed+result.Skipped))

	fmt.Fprintf(f.w, "\nScenarios: %s\n", strings.Join(counts, ", "))
	fmt.Fprintf(f.w, "Time:      %dms\n\n", result.Duration.Milliseconds())
}

func (f *ConsoleFormatter) scenario(r *workflow.ScenarioResult) {
	if r.Skipped {
		line := fmt.Sprintf("  %s %s", f.c.skip.Sprint("-"), r.Name)
		if r.SkipReason != "" && r.SkipReason != "filtered out" {
			line += " (" + r.SkipReason + ")"
		}
		fmt.Fprintln(f.w, line)
		return
	}

	mark := f.c.pass.Sprint("✓")
	if !r.Passed {
		mark = f.c.fail.Sprint("✗")
	}
	fmt.Fprintf(f.w, "  %s %s %s\n", mark, r.Name, f.c.timing.Sprintf("(%dms)", r.Duration.Milliseconds()))
	for _, line := range r.Logs {
		fmt.Fprintf(f.w, "      %s\n", f.c.dim.Sprint(line))
	}

	if f.verbose > 0 {
		for _, st := range r.Steps {
			f.step(st)
		}
	}
	if !r.Passed {
		f.failure(failedStep(r))
	}
}

func (f *ConsoleFormatter) failure(st *workflow.StepResult) {
	if st == nil {
		return
	}
	arrow := f.c.fail.Sprint("→")
	if st.Error != nil {
		fmt.Fprintf(f.w, "    %s %s: %v\n", arrow, st.Name, st.Error)
	}
	for _, a := range st.Assertions {
		if a.Passed {
			continue
		}
		fmt.Fprintf(f.w, "    %s %s: %s %s\n", arrow, st.Name, a.Subject, a.Operator)
		fmt.Fprintf(f.w, "      Expected: %s\n      Actual:   %s\n",
			formatValue(a.Expected, 100), formatValue(a.Actual, 100))
		if a.Message != "" {
			fmt.Fprintf(f.w, "      %s\n", a.Message)
		}
	}
	// At -vv the step line already carries the curl command.
	if f.verbose < 2 && st.Request != nil {
		fmt.Fprintf(f.w, "      %s\n", f.c.dim.Sprint(st.Request.Curl(f.showSecrets)))
	}
}

func (f *ConsoleFormatter) step(st *workflow.StepResult) {
	status := "---"
	if st.Response != nil {
		status = fmt.Sprint(st.Response.StatusCode)
	}
	var method, url string
	if st.Request != nil {
		method, url = st.Request.Method, st.Request.BuildURL()
	}
	fmt.Fprintf(f.w, "    %s: %s %s -> %s (%dms)\n", st.Name, method, url, status, st.Duration.Milliseconds())

	if f.verbose < 2 {
		return
	}
	if st.Request != nil {
		fmt.Fprintf(f.w, "      %s\n", st.Request.Curl(f.showSecrets))
	}
	names := make([]string, 0, len(st.Captures))
	for name := range st.Captures {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(f.w, "      %s = %s\n", name, formatValue(st.Captures[name], 60))
	}
}
