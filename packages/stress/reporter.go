package stress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

// progressLines is the height of the live progress block.
const progressLines = 3

// Reporter prints the header, live progress and final summary of a run.
type Reporter struct {
	w          io.Writer
	noColor    bool
	noProgress bool
	verbose    bool
	drawn      bool

	ok, bad, warn, info, strong *color.Color
}

type ReporterOption func(*Reporter)

func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) { r.w = w }
}

func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) { r.noColor = noColor }
}

// WithNoProgress disables the live progress block, e.g. when the output is
// not a terminal.
func WithNoProgress(noProgress bool) ReporterOption {
	return func(r *Reporter) { r.noProgress = noProgress }
}

// WithVerbose adds a per-scenario breakdown to the summary.
func WithVerbose(verbose bool) ReporterOption {
	return func(r *Reporter) { r.verbose = verbose }
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{w: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}
	r.ok = r.newColor(color.FgGreen)
	r.bad = r.newColor(color.FgRed)
	r.warn = r.newColor(color.FgYellow)
	r.info = r.newColor(color.FgCyan)
	r.strong = r.newColor(color.Bold)
	return r
}

func (r *Reporter) newColor(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if r.noColor {
		c.DisableColor()
	}
	return c
}

func (r *Reporter) Header(version, baseURL string, config *Config, scenarios int) {
	r.strong.Fprintf(r.w, "\npostcheck stress %s\n\n", version)
	r.info.Fprintf(r.w, "Stress Testing: %s\n", baseURL)
	fmt.Fprintf(r.w, "Scenarios: %d | Target: %s runs/s | Duration: %s | Concurrency: %d\n\n",
		scenarios, strconv.FormatFloat(config.Rate, 'f', -1, 64), formatDuration(config.Duration), config.Concurrency)
}

// Progress redraws the live block in place.
func (r *Reporter) Progress(stats CurrentStats, duration time.Duration) {
	if r.noProgress {
		return
	}
	if r.drawn {
		fmt.Fprintf(r.w, "\033[%dA", progressLines)
	}
	r.drawn = true

	const width = 30
	done := min(int(width*stats.Elapsed/max(duration, 1)), width)
	bar := strings.Repeat("━", done) + strings.Repeat("─", width-done)

	lines := [progressLines]string{
		fmt.Sprintf("Progress %s %s / %s", bar, formatDuration(stats.Elapsed), formatDuration(duration)),
		fmt.Sprintf("Runs: %s total | %s errors (%.2f%%)", formatNumber(stats.Total), formatNumber(stats.Errors), stats.ErrorRate*100),
		fmt.Sprintf("Rate: %.1f runs/s | p95: %s", stats.RPS, formatLatency(stats.P95)),
	}
	for _, line := range lines {
		fmt.Fprintf(r.w, "\r\033[K%s\n", line)
	}
}

// ClearProgress erases the progress block if one was drawn.
func (r *Reporter) ClearProgress() {
	if r.noProgress || !r.drawn {
		return
	}
	fmt.Fprintf(r.w, "\033[%dA%s\033[%dA", progressLines, strings.Repeat("\r\033[K\n", progressLines), progressLines)
	r.drawn = false
}

func (r *Reporter) Summary(s *Summary, thresholds []ThresholdResult) {
	r.section("STRESS TEST SUMMARY")
	fmt.Fprintln(r.w, strings.Repeat("─", 40))

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Duration:\t%s\n", formatDuration(s.Duration))
	fmt.Fprintf(tw, "Total:\t%s runs (%.1f runs/s)\n", formatNumber(s.TotalRequests), s.RPS)
	fmt.Fprintf(tw, "Success:\t%s (%.1f%%)\n", r.ok.Sprint(formatNumber(s.SuccessCount)), s.SuccessRate*100)
	failed := formatNumber(s.ErrorCount)
	if s.ErrorCount > 0 {
		failed = r.bad.Sprint(failed)
	}
	fmt.Fprintf(tw, "Failed:\t%s (%.1f%%)\n", failed, s.ErrorRate*100)
	if s.TimeoutCount > 0 {
		fmt.Fprintf(tw, "Timeouts:\t%s\n", r.warn.Sprint(formatNumber(s.TimeoutCount)))
	}
	_ = tw.Flush()

	r.section("LATENCY (ms)")
	tw = tabwriter.NewWriter(r.w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "  p50: %s\t| p95: %s\t| p99: %s\t| max: %s\n",
		formatLatencyMs(s.P50), formatLatencyMs(s.P95), formatLatencyMs(s.P99), formatLatencyMs(s.Max))
	fmt.Fprintf(tw, "  min: %s\t| mean: %s\t| stddev: %s\n",
		formatLatencyMs(s.Min), formatLatencyMs(s.Mean), formatLatencyMs(s.StdDev))
	_ = tw.Flush()

	if r.verbose && len(s.Scenarios) > 0 {
		r.section("PER-SCENARIO BREAKDOWN")
		for _, name := range sortedKeys(s.Scenarios) {
			ss := s.Scenarios[name]
			fmt.Fprintf(r.w, "  %s:\n    Total: %s | Errors: %s\n    p50: %s | p95: %s | p99: %s\n",
				name, formatNumber(ss.Total), formatNumber(ss.Errors),
				formatLatency(ss.P50), formatLatency(ss.P95), formatLatency(ss.P99))
		}
	}

	if len(thresholds) > 0 {
		r.section("THRESHOLDS")
		passed := true
		for _, t := range thresholds {
			mark := r.ok.Sprint("✓")
			if !t.Passed {
				mark = r.bad.Sprint("✗")
				passed = false
			}
			fmt.Fprintf(r.w, "  %s %s %s    (actual: %s)\n", mark, t.Name, t.Expected, t.Actual)
		}
		fmt.Fprintln(r.w)
		if passed {
			r.ok.Fprintln(r.w, "All thresholds passed!")
		} else {
			r.bad.Fprintln(r.w, "Some thresholds failed!")
		}
	}
	fmt.Fprintln(r.w)
}

func (r *Reporter) section(title string) {
	fmt.Fprintln(r.w)
	r.strong.Fprintln(r.w, title)
}

// JSONSummary writes the summary as a Report instead of the text layout.
func (r *Reporter) JSONSummary(s *Summary, thresholds []ThresholdResult) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReport(s, thresholds))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m, s := int(d/time.Minute), int((d%time.Minute)/time.Second)
	if s == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}

func formatLatency(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dμs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

// formatLatencyMs prints milliseconds with fewer decimals as values grow.
func formatLatencyMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000
	prec := 0
	switch {
	case ms < 1:
		prec = 2
	case ms < 10:
		prec = 1
	}
	return strconv.FormatFloat(ms, 'f', prec, 64)
}

// formatNumber groups digits by thousands: 1234567 becomes "1,234,567".
func formatNumber(n int64) string {
	digits := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	return sign + strings.Join(append([]string{digits}, groups...), ",")
}
