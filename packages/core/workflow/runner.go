package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/assertions"
	"github.com/abdul-hamid-achik/postcheck/packages/capture"
	"github.com/abdul-hamid-achik/postcheck/packages/fake"
	"github.com/abdul-hamid-achik/postcheck/packages/fixture"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
)

type Runner struct {
	client *http.Client
	config *Config
	tokens fixture.Store
	fake   *fake.Generator
}

type Config struct {
	BaseURL        string
	Verbose        bool
	Timeout        time.Duration
	FollowRedirect bool
	SkipTLSVerify  bool
	Proxy          string
	Headers        map[string]string
	Bail           bool
	NameFilter     string
	TagsFilter     []string
	WaitFor        *WaitForConfig
	// SchemaDir is the directory schema file paths are resolved against.
	SchemaDir string
}

type Option func(*Runner)

// WithTokenStore sets where the bearer token is saved. The default keeps it
// in memory.
func WithTokenStore(store fixture.Store) Option {
	return func(r *Runner) {
		r.tokens = store
	}
}

func WithFake(gen *fake.Generator) Option {
	return func(r *Runner) {
		r.fake = gen
	}
}

// WithClient replaces the HTTP client built from Config.
func WithClient(c *http.Client) Option {
	return func(r *Runner) {
		r.client = c
	}
}

func NewRunner(cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.FollowRedirect),
		http.WithValidateSSL(!cfg.SkipTLSVerify),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, http.WithDefaultHeaders(cfg.Headers))
	}

	r := &Runner{
		client: http.NewClient(clientOpts...),
		config: cfg,
		tokens: fixture.NewMemoryStore(),
		fake:   fake.New(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type RunResult struct {
	BaseURL  string
	Results  []*ScenarioResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
}

// HasNetworkErrors reports whether any step failed to reach the API.
func (r *RunResult) HasNetworkErrors() bool {
	for _, sr := range r.Results {
		for _, st := range sr.Steps {
			if IsNetworkError(st.Error) {
				return true
			}
		}
	}
	return false
}

type ScenarioResult struct {
	Name        string
	Description string
	Tags        []string
	Passed      bool
	Skipped     bool
	SkipReason  string
	Duration    time.Duration
	Steps       []*StepResult
	Logs        []string
	Error       error
}

type StepResult struct {
	Name       string
	Passed     bool
	Duration   time.Duration
	Request    *http.Request
	Response   *http.Response
	Assertions []*assertions.Result
	Captures   map[string]any
	Error      error
}

// NetworkError marks a step that never got a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// Validate checks that scenario names are unique and that every dependency
// names an earlier scenario.
func Validate(scenarios []*Scenario) error {
	seen := make(map[string]bool, len(scenarios))
	for _, sc := range scenarios {
		if sc.Name == "" {
			return fmt.Errorf("scenario without a name")
		}
		if seen[sc.Name] {
			return fmt.Errorf("duplicate scenario %q", sc.Name)
		}
		for _, dep := range sc.Depends {
			if !seen[dep] {
				return fmt.Errorf("scenario %q depends on %q which is not declared before it", sc.Name, dep)
			}
		}
		seen[sc.Name] = true
	}
	return nil
}

// Run executes scenarios sequentially in the order given.
func (r *Runner) Run(ctx context.Context, scenarios []*Scenario) (*RunResult, error) {
	if err := Validate(scenarios); err != nil {
		return nil, err
	}

	if r.config.WaitFor != nil {
		if err := r.waitForService(ctx, r.config.WaitFor); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	base := NewState(r.config.BaseURL, r.tokens, r.fake)
	result := &RunResult{BaseURL: base.BaseURL}
	executed := make(map[string]*ScenarioResult)

	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !r.shouldRun(sc) {
			result.Results = append(result.Results, &ScenarioResult{
				Name:       sc.Name,
				Tags:       sc.Tags,
				Skipped:    true,
				SkipReason: "filtered out",
			})
			result.Skipped++
			continue
		}

		// A dependency that was filtered out does not block: the token it
		// would produce may already be saved from an earlier run.
		dependencyFailed := false
		for _, dep := range sc.Depends {
			depResult, ok := executed[dep]
			if !ok {
				warnf("scenario %q runs without %q, which was filtered out", sc.Name, dep)
				continue
			}
			if !depResult.Passed {
				dependencyFailed = true
				break
			}
		}
		if dependencyFailed {
			skipped := &ScenarioResult{
				Name:       sc.Name,
				Tags:       sc.Tags,
				Skipped:    true,
				SkipReason: "dependency failed",
			}
			executed[sc.Name] = skipped
			result.Results = append(result.Results, skipped)
			result.Skipped++
			continue
		}

		scResult := r.RunScenario(ctx, sc, base.fork())
		executed[sc.Name] = scResult
		result.Results = append(result.Results, scResult)

		if scResult.Passed {
			result.Passed++
		} else {
			result.Failed++
			if r.config.Bail {
				break
			}
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// NewState returns an empty State for running a scenario outside Run. Each
// State gets its own fake generator, so states can be used concurrently.
func (r *Runner) NewState() *State {
	return NewState(r.config.BaseURL, r.tokens, fake.New(0))
}

// RunScenario runs the steps of one scenario against state. The first
// failing step stops the scenario.
func (r *Runner) RunScenario(ctx context.Context, sc *Scenario, state *State) *ScenarioResult {
	start := time.Now()
	result := &ScenarioResult{
		Name:        sc.Name,
		Description: sc.Description,
		Tags:        sc.Tags,
		Passed:      true,
	}

	for _, step := range sc.Steps {
		stepResult := r.runStep(ctx, step, state)
		result.Steps = append(result.Steps, stepResult)

		if !stepResult.Passed {
			result.Passed = false
			result.Error = stepError(stepResult)
			break
		}
	}

	result.Logs = state.Logger().Messages()
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) runStep(ctx context.Context, step *Step, state *State) *StepResult {
	result := &StepResult{
		Name:     step.Name,
		Captures: make(map[string]any),
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	req, err := step.Build(state)
	if err != nil {
		result.Error = fmt.Errorf("building request: %w", err)
		return result
	}
	result.Request = req

	if r.config.Verbose {
		state.Logf("%s %s", req.Method, req.BuildURL())
	}

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		result.Error = &NetworkError{Err: err}
		return result
	}
	result.Response = resp

	checks := append([]assertions.Assertion(nil), step.Assertions...)
	if step.Expect != nil {
		checks = append(checks, step.Expect(state)...)
	}

	var opts []assertions.EvaluatorOption
	if r.config.SchemaDir != "" {
		opts = append(opts, assertions.WithBaseDir(r.config.SchemaDir))
	}
	result.Assertions = assertions.EvaluateAll(resp, checks, opts...)
	result.Passed = assertions.AllPassed(result.Assertions)

	if !step.ExpectFailure && !resp.IsSuccess() {
		result.Passed = false
		result.Error = fmt.Errorf("unexpected status %d", resp.StatusCode)
		return result
	}
	if !result.Passed {
		return result
	}

	if len(step.Captures) > 0 {
		values, err := capture.ExtractAll(resp, step.Captures)
		for name, value := range values {
			result.Captures[name] = value
			state.Set(name, value)
		}
		if err != nil {
			result.Passed = false
			result.Error = err
			return result
		}
	}

	if step.Check != nil {
		if err := step.Check(state, resp); err != nil {
			result.Passed = false
			result.Error = err
			return result
		}
	}

	return result
}

func stepError(st *StepResult) error {
	if st.Error != nil {
		return fmt.Errorf("step %q: %w", st.Name, st.Error)
	}
	for _, a := range st.Assertions {
		if !a.Passed {
			return fmt.Errorf("step %q: %s %s: %s", st.Name, a.Subject, a.Operator, a.Message)
		}
	}
	return fmt.Errorf("step %q failed", st.Name)
}

// Selected returns the scenarios the name and tag filters let through, in
// order.
func (r *Runner) Selected(scenarios []*Scenario) []*Scenario {
	var out []*Scenario
	for _, sc := range scenarios {
		if r.shouldRun(sc) {
			out = append(out, sc)
		}
	}
	return out
}

func (r *Runner) shouldRun(sc *Scenario) bool {
	if r.config.NameFilter != "" {
		if !matchesPattern(sc.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !hasAnyTag(sc.Tags, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if len(pattern) > 1 && pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		substr := pattern[1 : len(pattern)-1]
		for i := 0; i <= len(name)-len(substr); i++ {
			if name[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}

	if pattern[0] == '*' {
		suffix := pattern[1:]
		return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}

// warnf prints a non-fatal problem to stderr.
func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}
