package http

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/alessio/shellescape"
)

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values // repeated keys allowed, e.g. id=55&id=60
	Body    []byte
	Timeout time.Duration
	// NoAuth strips Authorization, including a client default header.
	NoAuth bool
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: make(map[string]string),
		Query:   make(url.Values),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = []byte(body)
	return r
}

// SetJSON marshals v into the body and sets the JSON content type.
func (r *Request) SetJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	r.Body = data
	r.Headers["Content-Type"] = "application/json"
	return nil
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// SetQueryParam replaces all values of key.
func (r *Request) SetQueryParam(key string, values ...string) *Request {
	r.Query[key] = append([]string(nil), values...)
	return r
}

// AddQueryParam appends a value to key, keeping earlier ones.
func (r *Request) AddQueryParam(key, value string) *Request {
	r.Query.Add(key, value)
	return r
}

// Bearer sets the Authorization header. An empty token sends the request
// without one, like WithoutAuth.
func (r *Request) Bearer(token string) *Request {
	if token == "" {
		return r.WithoutAuth()
	}
	r.NoAuth = false
	r.Headers["Authorization"] = "Bearer " + token
	return r
}

// WithoutAuth marks the request to go out with no Authorization header.
func (r *Request) WithoutAuth() *Request {
	r.NoAuth = true
	for k := range r.Headers {
		if strings.EqualFold(k, "Authorization") {
			delete(r.Headers, k)
		}
	}
	return r
}

// BuildURL merges Query into the URL. Keys are emitted in sorted order,
// values of a repeated key in insertion order.
func (r *Request) BuildURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, vs := range r.Query {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Curl renders a copy-pasteable curl command for the request. The
// Authorization header is masked unless showSecrets is set.
func (r *Request) Curl(showSecrets bool) string {
	args := []string{"curl", "-sS", "-X", r.Method}

	keys := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := r.Headers[k]
		if strings.EqualFold(k, "Authorization") && !showSecrets {
			v = maskAuthorization(v)
		}
		args = append(args, "-H", k+": "+v)
	}
	if len(r.Body) > 0 {
		args = append(args, "--data-raw", string(r.Body))
	}
	args = append(args, r.BuildURL())

	return shellescape.QuoteCommand(args)
}

func maskAuthorization(v string) string {
	scheme, _, found := strings.Cut(v, " ")
	if !found {
		return "***"
	}
	return scheme + " ***"
}
