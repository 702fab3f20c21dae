package stress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/assertions"
	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (f *fakeExecutor) NewState() *workflow.State {
	return workflow.NewState("http://api.test", nil, nil)
}

func (f *fakeExecutor) RunScenario(ctx context.Context, sc *workflow.Scenario, state *workflow.State) *workflow.ScenarioResult {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[sc.Name]++
	f.mu.Unlock()

	res := &workflow.ScenarioResult{Name: sc.Name, Passed: !f.fail[sc.Name], Duration: time.Millisecond}
	if !res.Passed {
		res.Error = errors.New("unexpected status 500")
	}
	return res
}

func scenarios() []*workflow.Scenario {
	return []*workflow.Scenario{
		{Name: "Register a new user", Tags: []string{"auth"}},
		{Name: "Get all posts", Tags: []string{"read"}},
		{Name: "Get posts by id", Tags: []string{"read"}},
		{Name: "Create post", Tags: []string{"write"}},
	}
}

func quietReporter(buf *bytes.Buffer) *Reporter {
	return NewReporter(WithWriter(buf), WithNoColor(true), WithNoProgress(true), WithVerbose(true))
}

func TestReadOnly(t *testing.T) {
	read := ReadOnly(scenarios())
	require.Len(t, read, 2)
	assert.Equal(t, "Get all posts", read[0].Name)
	assert.Equal(t, "Get posts by id", read[1].Name)
}

func TestRunner_OnlyRunsReadScenarios(t *testing.T) {
	exec := &fakeExecutor{}
	var buf bytes.Buffer
	cfg := &Config{Duration: 300 * time.Millisecond, Rate: 50, Concurrency: 4}

	result, err := NewRunner(cfg, exec, WithReporter(quietReporter(&buf)), WithTarget("http://api.test", "1.0.0")).
		Run(context.Background(), scenarios())
	require.NoError(t, err)

	assert.Greater(t, result.Summary.TotalRequests, int64(2))
	assert.Equal(t, result.Summary.TotalRequests, result.Summary.SuccessCount)
	assert.Zero(t, exec.calls["Register a new user"])
	assert.Zero(t, exec.calls["Create post"])
	assert.Positive(t, exec.calls["Get all posts"])
	assert.Positive(t, exec.calls["Get posts by id"])
	assert.False(t, result.HasThresholdFailures())

	out := buf.String()
	assert.Contains(t, out, "postcheck stress 1.0.0")
	assert.Contains(t, out, "Stress Testing: http://api.test")
	assert.Contains(t, out, "Scenarios: 2")
	assert.Contains(t, out, "PER-SCENARIO BREAKDOWN")
}

func TestRunner_ErrorRateThreshold(t *testing.T) {
	exec := &fakeExecutor{fail: map[string]bool{"Get posts by id": true}}
	var buf bytes.Buffer
	thresholds, err := ParseThresholds("errors<1%")
	require.NoError(t, err)
	cfg := &Config{Duration: 200 * time.Millisecond, Rate: 50, Concurrency: 1, Thresholds: thresholds}

	result, err := NewRunner(cfg, exec, WithReporter(quietReporter(&buf))).Run(context.Background(), scenarios())
	require.NoError(t, err)

	assert.Positive(t, result.Summary.ErrorCount)
	assert.True(t, result.HasThresholdFailures())
	assert.Contains(t, buf.String(), "Some thresholds failed!")
}

func TestRunner_NoReadScenarios(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewRunner(DefaultConfig(), &fakeExecutor{}, WithReporter(quietReporter(&buf))).
		Run(context.Background(), []*workflow.Scenario{{Name: "Create post", Tags: []string{"write"}}})
	assert.ErrorIs(t, err, ErrNoScenarios)
}

func TestRunner_InvalidConfig(t *testing.T) {
	_, err := NewRunner(&Config{}, &fakeExecutor{}).Run(context.Background(), scenarios())
	assert.ErrorContains(t, err, "invalid config")
}

func TestRunner_CancelledContext(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(DefaultConfig(), &fakeExecutor{}, WithReporter(quietReporter(&buf))).Run(ctx, scenarios())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_WithWorkflowRunner(t *testing.T) {
	server := httptest.NewServer(httphelpers.HandlerWithJSONResponse([]any{map[string]any{"id": 1}}, nil))
	defer server.Close()

	list := &workflow.Scenario{
		Name: "Get all posts",
		Tags: []string{ReadTag},
		Steps: []*workflow.Step{{
			Name: "list",
			Build: func(s *workflow.State) (*http.Request, error) {
				return http.NewRequest("GET", s.URL("/posts")), nil
			},
			Assertions: []assertions.Assertion{assertions.Status(200)},
		}},
	}

	var buf bytes.Buffer
	cfg := &Config{Duration: 200 * time.Millisecond, Rate: 20, Concurrency: 2}
	wr := workflow.NewRunner(&workflow.Config{BaseURL: server.URL})

	result, err := NewRunner(cfg, wr, WithReporter(quietReporter(&buf))).Run(context.Background(), []*workflow.Scenario{list})
	require.NoError(t, err)
	assert.Positive(t, result.Summary.SuccessCount)
	assert.Equal(t, result.Summary.TotalRequests, result.Summary.SuccessCount+result.Summary.TimeoutCount)
}

func TestScheduler_Next(t *testing.T) {
	s := NewScheduler(DefaultConfig(), ReadOnly(scenarios()))
	assert.Equal(t, "Get all posts", s.Next().Name)
	assert.Equal(t, "Get posts by id", s.Next().Name)
	assert.Equal(t, "Get all posts", s.Next().Name)

	assert.Nil(t, NewScheduler(DefaultConfig(), nil).Next())
}

func TestScheduler_AcquireBlocksAtConcurrency(t *testing.T) {
	s := NewScheduler(&Config{Rate: 1, Concurrency: 1}, nil)
	require.NoError(t, s.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Acquire(ctx), context.DeadlineExceeded)

	s.Release()
	require.NoError(t, s.Acquire(context.Background()))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorContains(t, (&Config{Rate: 1, Concurrency: 1}).Validate(), "duration")
	assert.ErrorContains(t, (&Config{Duration: time.Second, Concurrency: 1}).Validate(), "rate")
	assert.ErrorContains(t, (&Config{Duration: time.Second, Rate: 1}).Validate(), "concurrency")
}

func TestParseThresholds(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Thresholds
		errMsg   string
	}{
		{name: "empty", input: ""},
		{
			name:     "p95 and error percentage",
			input:    "p95<200ms,errors<1%",
			expected: Thresholds{P95: 200 * time.Millisecond, ErrorRate: 0.01},
		},
		{
			name:     "all metrics",
			input:    "p50<50ms, p99<=1s, max<2s, errorRate<0.05, rps>10",
			expected: Thresholds{P50: 50 * time.Millisecond, P99: time.Second, MaxLatency: 2 * time.Second, ErrorRate: 0.05, MinRPS: 10},
		},
		{name: "bad format", input: "p95", errMsg: "invalid threshold format"},
		{name: "bad duration", input: "p95<fast", errMsg: "invalid duration for p95"},
		{name: "wrong operator for latency", input: "p95>200ms", errMsg: "must use < or <="},
		{name: "wrong operator for rps", input: "rps<10", errMsg: "must use > or >="},
		{name: "unknown metric", input: "ttfb<10ms", errMsg: "unknown threshold metric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseThresholds(tt.input)
			if tt.errMsg != "" {
				assert.ErrorContains(t, err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMetrics_SummaryAndThresholds(t *testing.T) {
	m := NewMetrics()
	m.Start()
	for i := 1; i <= 100; i++ {
		m.Record("Get all posts", time.Duration(i)*time.Millisecond, nil)
	}
	m.Record("Get posts by id", 5*time.Millisecond, errors.New("boom"))
	m.RecordTimeout("Get posts by id")
	m.Stop()

	s := m.GetSummary()
	assert.Equal(t, int64(102), s.TotalRequests)
	assert.Equal(t, int64(100), s.SuccessCount)
	assert.Equal(t, int64(2), s.ErrorCount)
	assert.Equal(t, int64(1), s.TimeoutCount)
	assert.InDelta(t, 95*time.Millisecond, s.P95, float64(time.Millisecond))
	assert.Equal(t, int64(2), s.Scenarios["Get posts by id"].Errors)
	assert.Equal(t, int64(2), s.Scenarios["Get posts by id"].Total)

	results := EvaluateThresholds(s, Thresholds{P95: 200 * time.Millisecond, ErrorRate: 0.01})
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "p95", results[0].Name)
	assert.False(t, results[1].Passed)
	assert.Equal(t, "error rate", results[1].Name)
}

func TestReporter_JSONSummary(t *testing.T) {
	m := NewMetrics()
	m.Start()
	m.Record("Get all posts", 10*time.Millisecond, nil)
	m.Stop()

	var buf bytes.Buffer
	r := NewReporter(WithWriter(&buf), WithNoColor(true))
	results := []ThresholdResult{{Name: "p95", Passed: true, Expected: "< 200ms", Actual: "10ms"}}
	require.NoError(t, r.JSONSummary(m.GetSummary(), results))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, float64(1), out["runs"].(map[string]any)["total"])
	assert.Equal(t, "p95", out["thresholds"].([]any)[0].(map[string]any)["name"])
	assert.Contains(t, out["scenarios"], "Get all posts")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "-12,000", formatNumber(-12000))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m", formatDuration(2*time.Minute))
	assert.Equal(t, "1m 05s", formatDuration(65*time.Second))
}

func TestNewReport_EmptyThresholds(t *testing.T) {
	rep := NewReport(&Summary{Duration: time.Second, TotalRequests: 3}, nil)

	assert.NotNil(t, rep.Thresholds)
	assert.Empty(t, rep.Thresholds)
	assert.Nil(t, rep.Scenarios)
	assert.Equal(t, int64(3), rep.Runs.Total)
}
