package capture

import (
	"fmt"

	"github.com/abdul-hamid-achik/postcheck/packages/http"
	"github.com/tidwall/gjson"
)

type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
	SourceDuration
)

// Capture names a value to pull out of a response. Path is a gjson path
// for body captures and a header name for header captures.
type Capture struct {
	Name     string
	Source   Source
	Path     string
	Required bool
}

// Body captures a value from the JSON body.
func Body(name, path string) Capture {
	return Capture{Name: name, Source: SourceBody, Path: path}
}

// MustBody is Body with Required set, so a missing value fails the step.
func MustBody(name, path string) Capture {
	return Capture{Name: name, Source: SourceBody, Path: path, Required: true}
}

func Header(name, header string) Capture {
	return Capture{Name: name, Source: SourceHeader, Path: header}
}

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	return &Extractor{
		response: resp,
		bodyJSON: resp.JSON(),
	}
}

func (e *Extractor) Extract(c Capture) (any, bool) {
	switch c.Source {
	case SourceBody:
		return e.extractFromBody(c.Path)
	case SourceHeader:
		return e.extractFromHeader(c.Path)
	case SourceStatus:
		return e.response.StatusCode, true
	case SourceDuration:
		return e.response.DurationMs(), true
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() || result.Type == gjson.Null {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value := e.response.Header(name)
	if value == "" {
		return nil, false
	}
	return value, true
}

// ExtractAll extracts every capture from resp. It returns an error naming
// the first required capture that could not be found; values extracted so
// far are still returned.
func ExtractAll(resp *http.Response, captures []Capture) (map[string]any, error) {
	extractor := NewExtractor(resp)
	results := make(map[string]any)

	for _, c := range captures {
		value, ok := extractor.Extract(c)
		if !ok {
			if c.Required {
				return results, fmt.Errorf("capture %q: no value at %q", c.Name, c.Path)
			}
			continue
		}
		results[c.Name] = value
	}

	return results, nil
}

// String renders a captured value the way it would appear in a URL path.
// JSON numbers arrive as float64, so whole numbers lose their fraction.
func String(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%v", n)
	default:
		return fmt.Sprintf("%v", v)
	}
}
