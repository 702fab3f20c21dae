// Package stress repeatedly runs read-only scenarios at a target rate and
// reports latency percentiles and error rates against pass/fail thresholds.
package stress

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ReadTag marks scenarios that are safe to repeat under load.
const ReadTag = "read"

// Config holds all configuration for a stress run
type Config struct {
	Duration    time.Duration
	Rate        float64 // scenario runs per second
	Concurrency int     // max scenario runs in flight
	Thresholds  Thresholds
}

// Thresholds defines pass/fail criteria. Zero fields are not checked.
type Thresholds struct {
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	MaxLatency time.Duration
	ErrorRate  float64 // 0.0 - 1.0
	MinRPS     float64
}

func DefaultConfig() *Config {
	return &Config{
		Duration:    30 * time.Second,
		Rate:        10,
		Concurrency: 10,
	}
}

func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	return nil
}

var thresholdPattern = regexp.MustCompile(`^(\w+)\s*([<>]=?)\s*(.+)$`)

// ParseThresholds parses a threshold string like "p95<200ms,errors<1%".
// Latency and error thresholds take < or <=, rps takes > or >=.
func ParseThresholds(s string) (Thresholds, error) {
	var t Thresholds

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := parseThresholdPart(part, &t); err != nil {
			return t, err
		}
	}

	return t, nil
}

func parseThresholdPart(part string, t *Thresholds) error {
	matches := thresholdPattern.FindStringSubmatch(part)
	if len(matches) != 4 {
		return fmt.Errorf("invalid threshold format: %s", part)
	}
	metric, op, value := strings.ToLower(matches[1]), matches[2], strings.TrimSpace(matches[3])
	upper := op == "<" || op == "<="

	latencies := map[string]*time.Duration{
		"p50":        &t.P50,
		"p95":        &t.P95,
		"p99":        &t.P99,
		"max":        &t.MaxLatency,
		"maxlatency": &t.MaxLatency,
	}
	if dst, ok := latencies[metric]; ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s", metric, value)
		}
		if !upper {
			return fmt.Errorf("%s threshold must use < or <=", metric)
		}
		*dst = d
		return nil
	}

	switch metric {
	case "errors", "error", "errorrate":
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return fmt.Errorf("invalid error rate: %s", value)
		}
		if strings.HasSuffix(value, "%") {
			f /= 100
		}
		if !upper {
			return fmt.Errorf("error rate threshold must use < or <=")
		}
		t.ErrorRate = f

	case "rps", "rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid RPS: %s", value)
		}
		if upper {
			return fmt.Errorf("RPS threshold must use > or >=")
		}
		t.MinRPS = f

	default:
		return fmt.Errorf("unknown threshold metric: %s", metric)
	}

	return nil
}

// HasThresholds returns true if any thresholds are configured
func (t *Thresholds) HasThresholds() bool {
	return t.P50 > 0 || t.P95 > 0 || t.P99 > 0 || t.MaxLatency > 0 || t.ErrorRate > 0 || t.MinRPS > 0
}

// ThresholdResult holds the result of evaluating a threshold
type ThresholdResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}
