package workflow

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/postcheck/packages/assertions"
	"github.com/abdul-hamid-achik/postcheck/packages/capture"
	"github.com/abdul-hamid-achik/postcheck/packages/fake"
	"github.com/abdul-hamid-achik/postcheck/packages/fixture"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
)

type Scenario struct {
	Name        string
	Description string
	Tags        []string
	// Depends names earlier scenarios that must pass for this one to run.
	Depends []string
	Steps   []*Step
}

func (s *Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Step is one HTTP exchange inside a scenario.
type Step struct {
	Name string

	// Build creates the request. It runs right before the step is sent, so
	// it can use values captured by earlier steps.
	Build func(s *State) (*http.Request, error)

	Assertions []assertions.Assertion
	// Expect returns assertions that depend on captured state.
	Expect func(s *State) []assertions.Assertion

	Captures []capture.Capture

	// ExpectFailure turns off the automatic failure on non-2xx responses.
	ExpectFailure bool

	// Check runs after assertions and captures passed. Returning an error
	// fails the step.
	Check func(s *State, resp *http.Response) error
}

// State is shared by the steps of one scenario.
type State struct {
	BaseURL string
	Tokens  fixture.Store
	Fake    *fake.Generator

	vars map[string]any
	log  *CapturingLogger
}

func NewState(baseURL string, tokens fixture.Store, gen *fake.Generator) *State {
	return &State{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Tokens:  tokens,
		Fake:    gen,
		vars:    make(map[string]any),
		log:     &CapturingLogger{},
	}
}

// URL joins path onto the base URL.
func (s *State) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.BaseURL + path
}

func (s *State) Set(name string, value any) {
	s.vars[name] = value
}

func (s *State) Get(name string) (any, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// GetString returns a captured value formatted for use in a URL.
func (s *State) GetString(name string) string {
	return capture.String(s.vars[name])
}

// Token loads the saved bearer token.
func (s *State) Token() (string, error) {
	if s.Tokens == nil {
		return "", fixture.ErrNoToken
	}
	token, err := s.Tokens.Load()
	if err != nil {
		return "", fmt.Errorf("loading token: %w", err)
	}
	return token, nil
}

// Logf records a line in the scenario log.
func (s *State) Logf(format string, args ...any) {
	s.log.Printf(format, args...)
}

func (s *State) Logger() *CapturingLogger {
	return s.log
}

// fork returns a State for the next scenario: same configuration, fresh
// captures and log.
func (s *State) fork() *State {
	return NewState(s.BaseURL, s.Tokens, s.Fake)
}
