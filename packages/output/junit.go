package output

import (
	"encoding/xml"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
)

const junitClassName = "postcheck"

type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite is one run against a base URL.
type JUnitTestSuite struct {
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr,omitempty"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitTestCase is one scenario.
type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitProblem `xml:"failure,omitempty"`
	Error     *JUnitProblem `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitProblem is the body of a <failure> or <error> element.
type JUnitProblem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter collects runs and writes them as one JUnit XML document on
// Flush.
type JUnitFormatter struct {
	writer  io.Writer
	version string
	suites  []JUnitTestSuite
	now     func() time.Time
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{writer: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *workflow.RunResult) {
	suite := JUnitTestSuite{
		Name:      result.BaseURL,
		Tests:     len(result.Results),
		Skipped:   result.Skipped,
		Time:      result.Duration.Seconds(),
		Timestamp: f.now().Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "base_url", Value: result.BaseURL},
		},
	}
	if f.version != "" {
		suite.Properties = append(suite.Properties, JUnitProperty{Name: "postcheck_version", Value: f.version})
	}

	for _, r := range result.Results {
		tc := junitCase(r)
		switch {
		case tc.Error != nil:
			suite.Errors++
		case tc.Failure != nil:
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	f.suites = append(f.suites, suite)
}

func junitCase(r *workflow.ScenarioResult) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      r.Name,
		ClassName: junitClassName,
		Time:      r.Duration.Seconds(),
		SystemOut: strings.Join(r.Logs, "\n"),
	}
	if r.Skipped {
		tc.Skipped = &JUnitSkipped{Message: r.SkipReason}
		return tc
	}
	if r.Passed {
		return tc
	}

	if workflow.IsNetworkError(r.Error) {
		tc.Error = &JUnitProblem{Message: r.Error.Error(), Type: "NetworkError"}
		return tc
	}
	p := &JUnitProblem{
		Message: "Assertion failed",
		Type:    "AssertionError",
		Content: strings.Join(failureLines(failedStep(r)), "\n"),
	}
	if r.Error != nil {
		p.Message = r.Error.Error()
	}
	tc.Failure = p
	return tc
}

// FormatError is a no-op: JUnit has no place for run-level errors.
func (f *JUnitFormatter) FormatError(err error) {}

func (f *JUnitFormatter) FormatHeader(version string) {
	f.version = version
}

func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	doc := JUnitTestSuites{
		Name:       junitClassName,
		Time:       totalDuration.Seconds(),
		Timestamp:  f.now().Format(time.RFC3339),
		TestSuites: f.suites,
	}
	for _, s := range f.suites {
		doc.Tests += s.Tests
		doc.Failures += s.Failures
		doc.Errors += s.Errors
		doc.Skipped += s.Skipped
	}

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(f.writer)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}
