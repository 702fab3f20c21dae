package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 10
	// DefaultUserAgent is sent unless a request or default header overrides it.
	DefaultUserAgent = "postcheck"
)

// Client sends Requests and reads whole responses. It is safe for
// concurrent use; the stress runner shares one across workers.
type Client struct {
	hc      *http.Client
	headers http.Header
}

type clientSettings struct {
	timeout       time.Duration
	noRedirects   bool
	skipTLSVerify bool
	proxy         string
	headers       map[string]string
}

type ClientOption func(*clientSettings)

// WithTimeout bounds each request, body read included.
func WithTimeout(d time.Duration) ClientOption {
	return func(s *clientSettings) { s.timeout = d }
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(s *clientSettings) { s.noRedirects = !follow }
}

func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(s *clientSettings) {
		for k, v := range headers {
			s.headers[k] = v
		}
	}
}

func WithValidateSSL(validate bool) ClientOption {
	return func(s *clientSettings) { s.skipTLSVerify = !validate }
}

// WithProxy routes every request through proxyURL instead of the
// HTTP_PROXY environment. An unparsable URL is ignored.
func WithProxy(proxyURL string) ClientOption {
	return func(s *clientSettings) { s.proxy = proxyURL }
}

func NewClient(opts ...ClientOption) *Client {
	s := clientSettings{
		timeout: DefaultTimeout,
		headers: map[string]string{"User-Agent": DefaultUserAgent},
	}
	for _, opt := range opts {
		opt(&s)
	}

	c := &Client{
		hc: &http.Client{
			Transport:     s.transport(),
			Timeout:       s.timeout,
			CheckRedirect: s.redirectPolicy,
		},
		headers: make(http.Header, len(s.headers)),
	}
	for k, v := range s.headers {
		c.headers.Set(k, v)
	}
	return c
}

func (s clientSettings) transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 32
	if s.skipTLSVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if s.proxy != "" {
		if u, err := neturl.Parse(s.proxy); err == nil {
			t.Proxy = http.ProxyURL(u)
		}
	}
	return t
}

func (s clientSettings) redirectPolicy(req *http.Request, via []*http.Request) error {
	if s.noRedirects || len(via) >= DefaultMaxRedirects {
		return http.ErrUseLastResponse
	}
	return nil
}

// Do sends req and reads the full response body. A non-2xx status is not
// an error; callers decide what a status means.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	target := req.BuildURL()
	if err := ValidateURL(target); err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	hreq.Header = c.headers.Clone()
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}
	if req.NoAuth {
		hreq.Header.Del("Authorization")
	}

	start := time.Now()
	hresp, err := c.hc.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, target, err)
	}
	defer hresp.Body.Close()

	body, err := io.ReadAll(hresp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: hresp.StatusCode,
		Status:     hresp.Status,
		Headers:    make(map[string]string, len(hresp.Header)),
		Body:       body,
		Duration:   elapsed,
	}
	for k := range hresp.Header {
		resp.Headers[k] = hresp.Header.Get(k)
	}
	return resp, nil
}

// Send builds a request for method and url and sends it. A non-nil body is
// encoded as JSON.
func (c *Client) Send(ctx context.Context, method, url string, body any) (*Response, error) {
	req := NewRequest(method, url)
	if body != nil {
		if err := req.SetJSON(body); err != nil {
			return nil, err
		}
	}
	return c.Do(ctx, req)
}

var errNoHost = errors.New("URL must have a host")

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported URL scheme %q (only http and https are allowed)", u.Scheme)
	}
	if u.Host == "" {
		return errNoHost
	}
	return nil
}
