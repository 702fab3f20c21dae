package stress

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are recorded in microseconds between 1us and 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
}

func clampLatency(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatencyUs {
		return minLatencyUs
	}
	if us > maxLatencyUs {
		return maxLatencyUs
	}
	return us
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

// Metrics collects scenario latencies and outcomes. It is safe for
// concurrent use.
type Metrics struct {
	mu sync.RWMutex

	total    atomic.Int64
	success  atomic.Int64
	errors   atomic.Int64
	timeouts atomic.Int64

	histogram *hdrhistogram.Histogram
	scenarios map[string]*scenarioMetrics

	startTime time.Time
	endTime   time.Time
}

type scenarioMetrics struct {
	total     int64
	errors    int64
	histogram *hdrhistogram.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram: newHistogram(),
		scenarios: make(map[string]*scenarioMetrics),
	}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startTime = time.Now()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endTime = time.Now()
}

// Record records one scenario run. A non-nil err counts as an error.
func (m *Metrics) Record(name string, duration time.Duration, err error) {
	m.total.Add(1)
	if err != nil {
		m.errors.Add(1)
	} else {
		m.success.Add(1)
	}

	latency := clampLatency(duration)

	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.histogram.RecordValue(latency)

	sm := m.scenario(name)
	sm.total++
	if err != nil {
		sm.errors++
	}
	_ = sm.histogram.RecordValue(latency)
}

// RecordTimeout records a run cut off by the end of the test. Its latency
// is not recorded.
func (m *Metrics) RecordTimeout(name string) {
	m.total.Add(1)
	m.timeouts.Add(1)
	m.errors.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	sm := m.scenario(name)
	sm.total++
	sm.errors++
}

// scenario must be called with mu held.
func (m *Metrics) scenario(name string) *scenarioMetrics {
	sm, ok := m.scenarios[name]
	if !ok {
		sm = &scenarioMetrics{histogram: newHistogram()}
		m.scenarios[name] = sm
	}
	return sm
}

// Summary is the final result of a stress run
type Summary struct {
	Duration      time.Duration
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64
	TimeoutCount  int64

	RPS         float64
	SuccessRate float64
	ErrorRate   float64

	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration

	Scenarios map[string]*ScenarioSummary
}

type ScenarioSummary struct {
	Name   string
	Total  int64
	Errors int64
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Mean   time.Duration
}

func (m *Metrics) GetSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	total := m.total.Load()
	summary := &Summary{
		Duration:      duration,
		TotalRequests: total,
		SuccessCount:  m.success.Load(),
		ErrorCount:    m.errors.Load(),
		TimeoutCount:  m.timeouts.Load(),
		P50:           quantile(m.histogram, 50),
		P95:           quantile(m.histogram, 95),
		P99:           quantile(m.histogram, 99),
		Min:           time.Duration(m.histogram.Min()) * time.Microsecond,
		Max:           time.Duration(m.histogram.Max()) * time.Microsecond,
		Mean:          time.Duration(m.histogram.Mean()) * time.Microsecond,
		StdDev:        time.Duration(m.histogram.StdDev()) * time.Microsecond,
		Scenarios:     make(map[string]*ScenarioSummary, len(m.scenarios)),
	}
	if duration > 0 {
		summary.RPS = float64(total) / duration.Seconds()
	}
	if total > 0 {
		summary.SuccessRate = float64(summary.SuccessCount) / float64(total)
		summary.ErrorRate = float64(summary.ErrorCount) / float64(total)
	}

	for name, sm := range m.scenarios {
		summary.Scenarios[name] = &ScenarioSummary{
			Name:   name,
			Total:  sm.total,
			Errors: sm.errors,
			P50:    quantile(sm.histogram, 50),
			P95:    quantile(sm.histogram, 95),
			P99:    quantile(sm.histogram, 99),
			Mean:   time.Duration(sm.histogram.Mean()) * time.Microsecond,
		}
	}

	return summary
}

// CurrentStats is a live view for the progress display
type CurrentStats struct {
	Elapsed   time.Duration
	Total     int64
	Errors    int64
	RPS       float64
	P95       time.Duration
	ErrorRate float64
}

func (m *Metrics) GetCurrentStats() CurrentStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := CurrentStats{
		Elapsed: time.Since(m.startTime),
		Total:   m.total.Load(),
		Errors:  m.errors.Load(),
		P95:     quantile(m.histogram, 95),
	}
	if stats.Elapsed > 0 {
		stats.RPS = float64(stats.Total) / stats.Elapsed.Seconds()
	}
	if stats.Total > 0 {
		stats.ErrorRate = float64(stats.Errors) / float64(stats.Total)
	}
	return stats
}

// EvaluateThresholds checks the summary against t. A latency threshold
// passes when the measured value is at or below it.
func EvaluateThresholds(summary *Summary, t Thresholds) []ThresholdResult {
	var results []ThresholdResult

	latency := func(name string, limit, actual time.Duration) {
		if limit > 0 {
			results = append(results, ThresholdResult{
				Name:     name,
				Passed:   actual <= limit,
				Expected: "< " + limit.String(),
				Actual:   actual.String(),
			})
		}
	}
	latency("p50", t.P50, summary.P50)
	latency("p95", t.P95, summary.P95)
	latency("p99", t.P99, summary.P99)
	latency("max latency", t.MaxLatency, summary.Max)

	if t.ErrorRate > 0 {
		results = append(results, ThresholdResult{
			Name:     "error rate",
			Passed:   summary.ErrorRate <= t.ErrorRate,
			Expected: "< " + formatPercent(t.ErrorRate),
			Actual:   formatPercent(summary.ErrorRate),
		})
	}

	if t.MinRPS > 0 {
		results = append(results, ThresholdResult{
			Name:     "min RPS",
			Passed:   summary.RPS >= t.MinRPS,
			Expected: "> " + formatFloat(t.MinRPS),
			Actual:   formatFloat(summary.RPS),
		})
	}

	return results
}

func formatPercent(f float64) string {
	return formatFloat(f*100) + "%"
}

func formatFloat(f float64) string {
	if f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
