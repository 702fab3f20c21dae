package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/assertions"
	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *workflow.RunResult {
	req := http.NewRequest("POST", "http://api.test/posts").Bearer("secret-token")
	failing := &workflow.StepResult{
		Name:     "create",
		Passed:   false,
		Duration: 12 * time.Millisecond,
		Request:  req,
		Response: &http.Response{StatusCode: 500, Status: "500 Internal Server Error"},
		Assertions: []*assertions.Result{
			{Passed: false, Subject: "status", Operator: "==", Expected: 201, Actual: 500},
		},
		Error: errors.New("unexpected status 500"),
	}

	return &workflow.RunResult{
		BaseURL:  "http://api.test",
		Duration: 40 * time.Millisecond,
		Passed:   1,
		Failed:   1,
		Skipped:  1,
		Results: []*workflow.ScenarioResult{
			{
				Name:     "Register a new user",
				Passed:   true,
				Duration: 20 * time.Millisecond,
				Logs:     []string{"token saved to fixtures/token.json"},
				Steps: []*workflow.StepResult{{
					Name:     "register",
					Passed:   true,
					Request:  http.NewRequest("POST", "http://api.test/register"),
					Response: &http.Response{StatusCode: 201, Status: "201 Created"},
					Captures: map[string]any{"token": "abc"},
				}},
			},
			{
				Name:     "Create post",
				Passed:   false,
				Duration: 12 * time.Millisecond,
				Steps:    []*workflow.StepResult{failing},
				Error:    errors.New(`step "create": unexpected status 500`),
			},
			{
				Name:       "Delete missing post",
				Skipped:    true,
				SkipReason: "dependency failed",
			},
		},
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "console", "json", "junit", "tap"} {
		f, err := New(format, Options{Writer: &bytes.Buffer{}, NoColor: true})
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	_, err := New("html", Options{})
	assert.ErrorContains(t, err, "unknown output format")
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatHeader("1.0.0")
	f.FormatResult(sampleResult())
	out := buf.String()

	assert.Contains(t, out, "postcheck 1.0.0")
	assert.Contains(t, out, "Running: http://api.test")
	assert.Contains(t, out, "✓ Register a new user")
	assert.Contains(t, out, "token saved to fixtures/token.json")
	assert.Contains(t, out, "✗ Create post")
	assert.Contains(t, out, "Expected: 201")
	assert.Contains(t, out, "Actual:   500")
	assert.Contains(t, out, "- Delete missing post (dependency failed)")
	assert.Contains(t, out, "1 passed, 1 failed, 1 skipped, 3 total")
	assert.NotContains(t, out, "secret-token")
	assert.Contains(t, out, "Bearer ***")
}

func TestConsoleFormatter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(2), WithShowSecrets(true))

	f.FormatResult(sampleResult())
	out := buf.String()

	assert.Contains(t, out, "register: POST http://api.test/register -> 201")
	assert.Contains(t, out, "token = abc")
	assert.Contains(t, out, "secret-token")
}

func TestConsoleFormatter_FormatError(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatError(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "http://api.test", out.BaseURL)
	assert.Equal(t, JSONSummary{Total: 3, Passed: 1, Failed: 1, Skipped: 1}, out.Summary)
	require.Len(t, out.Scenarios, 3)
	assert.Equal(t, []string{"token saved to fixtures/token.json"}, out.Scenarios[0].Logs)
	assert.Equal(t, "abc", out.Scenarios[0].Steps[0].Captures["token"])
	assert.Contains(t, out.Scenarios[1].Error, "unexpected status 500")
	assert.Equal(t, 500, out.Scenarios[1].Steps[0].Response.StatusCode)
	assert.Equal(t, "dependency failed", out.Scenarios[2].SkipReason)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))

	assert.Equal(t, "postcheck", suites.Name)
	assert.Equal(t, 3, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Skipped)
	require.Len(t, suites.TestSuites, 1)

	cases := suites.TestSuites[0].TestCases
	require.Len(t, cases, 3)
	assert.Nil(t, cases[0].Failure)
	assert.Contains(t, cases[0].SystemOut, "token saved")
	require.NotNil(t, cases[1].Failure)
	assert.Contains(t, cases[1].Failure.Content, "status ==: expected 201, got 500")
	require.NotNil(t, cases[2].Skipped)
}

func TestJUnitFormatter_NetworkError(t *testing.T) {
	result := &workflow.RunResult{
		BaseURL: "http://api.test",
		Failed:  1,
		Results: []*workflow.ScenarioResult{{
			Name:  "Get all posts",
			Error: &workflow.NetworkError{Err: errors.New("connection refused")},
		}},
	}

	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatResult(result)
	require.NoError(t, f.Flush(time.Second))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	assert.Equal(t, 0, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	require.NotNil(t, suites.TestSuites[0].TestCases[0].Error)
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))
	out := buf.String()

	assert.Contains(t, out, "TAP version 13\n1..3\n")
	assert.Contains(t, out, "ok 1 - Register a new user\n# token saved to fixtures/token.json\n")
	assert.Contains(t, out, "not ok 2 - Create post\n")
	assert.Contains(t, out, "not ok 2 - Create post\n  ---\n")
	assert.Contains(t, out, "  severity: fail\n")
	assert.Contains(t, out, "  step: create\n")
	assert.Contains(t, out, "status ==: expected 201, got 500")
	assert.Contains(t, out, "  duration_ms: 12\n  ...\n")
	assert.Contains(t, out, "ok 3 - Delete missing post # SKIP dependency failed")
	assert.NotContains(t, out, "Bail out!")
}

func TestTAPFormatter_BailOut(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatError(errors.New("api did not become ready"))
	require.NoError(t, f.Flush(0))

	assert.Equal(t, "TAP version 13\n1..0\nBail out! api did not become ready\n# time 0s\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "[array with 2 items]", formatValue([]any{1, 2}, 10))
	assert.Equal(t, "{object with 1 keys}", formatValue(map[string]any{"a": 1}, 10))
	assert.Equal(t, "abc...", formatValue("abcdef", 3))
	assert.Equal(t, "42", formatValue(42, 10))
}
