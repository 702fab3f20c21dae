package http

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// JSON parses the body for gjson path lookups. The result does not exist
// when the body is not valid JSON, whatever the Content-Type claims.
func (r *Response) JSON() gjson.Result {
	if !gjson.ValidBytes(r.Body) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(r.Body)
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Header returns the first value of key, matched case-insensitively.
func (r *Response) Header(key string) string {
	if v, ok := r.Headers[http.CanonicalHeaderKey(key)]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// IsJSON reports whether the Content-Type is application/json or a +json
// variant.
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.Header("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
