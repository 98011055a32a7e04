package synapse

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// Response represents an HTTP response with custom status code and body.
// Handlers return it when they need to control the status code or headers;
// any other return value is wrapped into a 200 JSON response.
//
// Example usage:
//
//	func (c *CatsController) Create(dto CreateCat) (*synapse.Response, error) {
//	    cat := c.cats.Add(dto)
//	    return synapse.Created(cat), nil
//	}
type Response struct {
	// StatusCode is the HTTP status code to return (e.g., 200, 201, 404, 500)
	StatusCode int

	// Header holds extra response headers
	Header http.Header

	// Body is encoded according to the request's Accept header
	Body any
}

// NewResponse creates a new Response with the specified status code and body
func NewResponse(statusCode int, body any) *Response {
	return &Response{
		StatusCode: statusCode,
		Body:       body,
	}
}

// OK creates a 200 OK response with the given body
func OK(body any) *Response {
	return NewResponse(http.StatusOK, body)
}

// Created creates a 201 Created response with the given body
func Created(body any) *Response {
	return NewResponse(http.StatusCreated, body)
}

// NoContent creates a 204 No Content response
func NoContent() *Response {
	return NewResponse(http.StatusNoContent, nil)
}

// ErrorResponse renders an HttpError as a response
func ErrorResponse(err *HttpError) *Response {
	return NewResponse(err.StatusCode, err)
}

// WithHeader sets a response header and returns the response
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

const (
	MIMEApplicationJSON    = "application/json"
	MIMEApplicationMsgpack = "application/msgpack"
)

// Encode serializes the response body, choosing msgpack when accept asks for it
// and JSON otherwise. A nil body encodes to no bytes.
func (r *Response) Encode(accept string) (contentType string, data []byte, err error) {
	if r.Body == nil {
		return "", nil, nil
	}
	if wantsMsgpack(accept) {
		data, err = msgpack.Marshal(r.Body)
		return MIMEApplicationMsgpack, data, err
	}
	data, err = json.Marshal(r.Body)
	return MIMEApplicationJSON + "; charset=utf-8", data, err
}

func wantsMsgpack(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch mediaType {
		case MIMEApplicationMsgpack, "application/x-msgpack", "application/vnd.msgpack":
			return true
		case MIMEApplicationJSON:
			return false
		}
	}
	return false
}

// Write encodes the response onto w. Encoding failures become a plain 500.
func (r *Response) Write(w http.ResponseWriter, accept string) error {
	contentType, data, err := r.Encode(accept)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return err
	}

	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if contentType != "" && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentType)
	}

	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(data) > 0 {
		_, err = w.Write(data)
	}
	return err
}
