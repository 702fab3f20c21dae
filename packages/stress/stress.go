package stress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
)

// ErrNoScenarios is returned when nothing tagged read is left to run.
var ErrNoScenarios = errors.New("no read-only scenarios to run")

// Executor runs a single scenario on a fresh State.
type Executor interface {
	NewState() *workflow.State
	RunScenario(ctx context.Context, sc *workflow.Scenario, state *workflow.State) *workflow.ScenarioResult
}

type Runner struct {
	config   *Config
	executor Executor
	metrics  *Metrics
	reporter *Reporter
	baseURL  string
	version  string
}

type RunnerOption func(*Runner)

func WithReporter(reporter *Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

// WithTarget names the API and version shown in the report header.
func WithTarget(baseURL, version string) RunnerOption {
	return func(r *Runner) {
		r.baseURL = baseURL
		r.version = version
	}
}

func NewRunner(config *Config, executor Executor, opts ...RunnerOption) *Runner {
	r := &Runner{
		config:   config,
		executor: executor,
		metrics:  NewMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = NewReporter()
	}
	return r
}

// ReadOnly returns the scenarios tagged read, in order.
func ReadOnly(scenarios []*workflow.Scenario) []*workflow.Scenario {
	var out []*workflow.Scenario
	for _, sc := range scenarios {
		if sc.HasTag(ReadTag) {
			out = append(out, sc)
		}
	}
	return out
}

// Run repeats the read-only scenarios among scenarios until the configured
// duration elapses or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, scenarios []*workflow.Scenario) (*Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	scenarios = ReadOnly(scenarios)
	if len(scenarios) == 0 {
		return nil, ErrNoScenarios
	}

	r.reporter.Header(r.version, r.baseURL, r.config, len(scenarios))

	scheduler := NewScheduler(r.config, scenarios)
	r.metrics.Start()

	runCtx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	progressDone := make(chan struct{})
	progressStopped := make(chan struct{})
	go r.progressLoop(progressDone, progressStopped)

	var wg sync.WaitGroup
	for {
		if err := scheduler.Wait(runCtx); err != nil {
			break
		}
		if err := scheduler.Acquire(runCtx); err != nil {
			break
		}

		sc := scheduler.Next()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer scheduler.Release()
			r.execute(runCtx, sc)
		}()
	}
	wg.Wait()

	r.metrics.Stop()
	close(progressDone)
	<-progressStopped
	r.reporter.ClearProgress()

	summary := r.metrics.GetSummary()
	var thresholdResults []ThresholdResult
	if r.config.Thresholds.HasThresholds() {
		thresholdResults = EvaluateThresholds(summary, r.config.Thresholds)
	}

	r.reporter.Summary(summary, thresholdResults)

	result := &Result{
		Summary:    summary,
		Thresholds: thresholdResults,
	}
	// A cancelled parent context aborts the run; reaching the duration does not.
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) execute(ctx context.Context, sc *workflow.Scenario) {
	res := r.executor.RunScenario(ctx, sc, r.executor.NewState())
	if res.Passed {
		r.metrics.Record(sc.Name, res.Duration, nil)
		return
	}
	if ctx.Err() != nil {
		r.metrics.RecordTimeout(sc.Name)
		return
	}
	r.metrics.Record(sc.Name, res.Duration, res.Error)
}

func (r *Runner) progressLoop(done, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.reporter.Progress(r.metrics.GetCurrentStats(), r.config.Duration)
		}
	}
}

// Result holds the final result of a stress run
type Result struct {
	Summary    *Summary
	Thresholds []ThresholdResult
}

// HasThresholdFailures returns true if any thresholds failed
func (r *Result) HasThresholdFailures() bool {
	for _, tr := range r.Thresholds {
		if !tr.Passed {
			return true
		}
	}
	return false
}
