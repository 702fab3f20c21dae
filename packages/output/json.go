package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	BaseURL   string         `json:"baseUrl"`
	Summary   JSONSummary    `json:"summary"`
	Scenarios []JSONScenario `json:"scenarios"`
	Duration  float64        `json:"duration"`
	Time      string         `json:"time"`
}

type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONScenario represents a single scenario result
type JSONScenario struct {
	Name       string     `json:"name"`
	Tags       []string   `json:"tags,omitempty"`
	Passed     bool       `json:"passed"`
	Skipped    bool       `json:"skipped,omitempty"`
	SkipReason string     `json:"skipReason,omitempty"`
	Duration   float64    `json:"duration"`
	Error      string     `json:"error,omitempty"`
	Logs       []string   `json:"logs,omitempty"`
	Steps      []JSONStep `json:"steps,omitempty"`
}

type JSONStep struct {
	Name       string          `json:"name"`
	Passed     bool            `json:"passed"`
	Duration   float64         `json:"duration"`
	Error      string          `json:"error,omitempty"`
	Request    *JSONRequest    `json:"request,omitempty"`
	Response   *JSONResponse   `json:"response,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
	Captures   map[string]any  `json:"captures,omitempty"`
}

type JSONRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   float64           `json:"duration"`
}

type JSONAssertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter collects scenario results and writes them as one document
// on Flush.
type JSONFormatter struct {
	writer    io.Writer
	baseURL   string
	scenarios []JSONScenario
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:    os.Stdout,
		scenarios: make([]JSONScenario, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *workflow.RunResult) {
	f.baseURL = result.BaseURL
	for _, r := range result.Results {
		sc := JSONScenario{
			Name:     r.Name,
			Tags:     r.Tags,
			Passed:   r.Passed,
			Skipped:  r.Skipped,
			Duration: float64(r.Duration.Milliseconds()),
			Logs:     r.Logs,
		}
		if r.SkipReason != "" && r.SkipReason != "filtered out" {
			sc.SkipReason = r.SkipReason
		}
		if r.Error != nil {
			sc.Error = r.Error.Error()
		}
		for _, st := range r.Steps {
			sc.Steps = append(sc.Steps, jsonStep(st))
		}
		f.scenarios = append(f.scenarios, sc)
	}
}

func jsonStep(st *workflow.StepResult) JSONStep {
	step := JSONStep{
		Name:     st.Name,
		Passed:   st.Passed,
		Duration: float64(st.Duration.Milliseconds()),
	}
	if st.Error != nil {
		step.Error = st.Error.Error()
	}
	if st.Request != nil {
		step.Request = &JSONRequest{
			Method: st.Request.Method,
			URL:    st.Request.BuildURL(),
		}
	}
	if st.Response != nil {
		step.Response = &JSONResponse{
			StatusCode: st.Response.StatusCode,
			Status:     st.Response.Status,
			Headers:    st.Response.Headers,
			Duration:   float64(st.Response.DurationMs()),
		}
	}
	if len(st.Assertions) > 0 {
		step.Assertions = make([]JSONAssertion, len(st.Assertions))
		for i, a := range st.Assertions {
			step.Assertions[i] = JSONAssertion{
				Subject:  a.Subject,
				Operator: a.Operator,
				Expected: a.Expected,
				Actual:   a.Actual,
				Passed:   a.Passed,
				Message:  a.Message,
			}
		}
	}
	if len(st.Captures) > 0 {
		step.Captures = st.Captures
	}
	return step
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual scenario results
}

func (f *JSONFormatter) FormatHeader(version string) {}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var passed, failed, skipped int
	for _, s := range f.scenarios {
		switch {
		case s.Skipped:
			skipped++
		case s.Passed:
			passed++
		default:
			failed++
		}
	}

	output := JSONOutput{
		BaseURL: f.baseURL,
		Summary: JSONSummary{
			Total:   len(f.scenarios),
			Passed:  passed,
			Failed:  failed,
			Skipped: skipped,
		},
		Scenarios: f.scenarios,
		Duration:  float64(totalDuration.Milliseconds()),
		Time:      time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
