package synapse

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// ErrEmptyBody is returned by Request.JSON when the request has no body
var ErrEmptyBody = errors.New("request body is empty")

// ParamsFunc supplies the path parameters the host router extracted, if any
type ParamsFunc func(ctx context.Context) (map[string]string, error)

// Request is the host-independent view of an inbound call
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header

	// Raw is the host's native request object (echo.Context, *gin.Context, *fiber.Ctx, *http.Request)
	Raw any

	params   ParamsFunc
	readBody func() ([]byte, error)

	bodyOnce sync.Once
	body     []byte
	bodyErr  error
}

// RequestOption configures a Request
type RequestOption func(*Request)

// WithBody sets a fixed request body
func WithBody(body []byte) RequestOption {
	return func(r *Request) {
		r.readBody = func() ([]byte, error) { return body, nil }
	}
}

// WithBodyReader sets a lazily read request body
func WithBodyReader(read func() ([]byte, error)) RequestOption {
	return func(r *Request) {
		r.readBody = read
	}
}

// WithHeader sets the request headers
func WithHeader(h http.Header) RequestOption {
	return func(r *Request) {
		r.Header = h
	}
}

// WithParams sets the host params source
func WithParams(fn ParamsFunc) RequestOption {
	return func(r *Request) {
		r.params = fn
	}
}

// WithStaticParams sets host params known up front
func WithStaticParams(params map[string]string) RequestOption {
	return WithParams(func(context.Context) (map[string]string, error) {
		return params, nil
	})
}

// WithRaw attaches the host's native request
func WithRaw(raw any) RequestOption {
	return func(r *Request) {
		r.Raw = raw
	}
}

// NewRequest creates a request for method and target, where target is a path with an optional query
func NewRequest(method, target string, opts ...RequestOption) (*Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	r := &Request{
		Method: method,
		URL:    u,
		Header: make(http.Header),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// FromHTTP wraps a net/http request. The body is read on first use.
func FromHTTP(hr *http.Request, opts ...RequestOption) *Request {
	r := &Request{
		Method: hr.Method,
		URL:    hr.URL,
		Header: hr.Header,
		Raw:    hr,
		readBody: func() ([]byte, error) {
			if hr.Body == nil {
				return nil, nil
			}
			return io.ReadAll(hr.Body)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the request path, "/" when empty
func (r *Request) Path() string {
	if r.URL == nil || r.URL.Path == "" {
		return "/"
	}
	return r.URL.Path
}

// HeaderValue returns the first value of a request header
func (r *Request) HeaderValue(key string) string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get(key)
}

// Body returns the raw request body, reading it at most once
func (r *Request) Body() ([]byte, error) {
	r.bodyOnce.Do(func() {
		if r.readBody != nil {
			r.body, r.bodyErr = r.readBody()
		}
	})
	return r.body, r.bodyErr
}

// JSON decodes the request body into v
func (r *Request) JSON(v any) error {
	body, err := r.Body()
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(body, v)
}

// Query parses the query string into a flat map; the last value wins on duplicate keys
func (r *Request) Query() QueryMap {
	out := make(QueryMap)
	if r.URL == nil {
		return out
	}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			out[key] = values[len(values)-1]
		}
	}
	return out
}

// Params returns the params the host router supplied, or nil
func (r *Request) Params(ctx context.Context) (map[string]string, error) {
	if r.params == nil {
		return nil, nil
	}
	return r.params(ctx)
}

// Accept returns the Accept header used for response negotiation
func (r *Request) Accept() string {
	return strings.TrimSpace(r.HeaderValue("Accept"))
}
