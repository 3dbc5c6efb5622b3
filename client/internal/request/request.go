// Package request provides an immutable HTTP request descriptor that is
// executed through an injected Adapter.
//
// Every builder method returns a new Request; the receiver is never mutated,
// so a Request can be shared freely and specialised by different callers.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// ErrResponseNotAvailable is returned by requests built with RejectEmpty when
// the adapter resolves with an empty body.
var ErrResponseNotAvailable = errors.New("Response not available")

// Options is what an Adapter receives for a single call.
type Options struct {
	Method  string
	Path    string
	Headers map[string]string // nil when no headers apply
	Query   url.Values
	Payload any
}

// Adapter executes a request. Implementations own transport concerns such as
// base URLs, authentication and cancellation via ctx.
type Adapter interface {
	Do(ctx context.Context, opts Options) (json.RawMessage, error)
}

// AdapterFunc adapts a function to an Adapter.
type AdapterFunc func(ctx context.Context, opts Options) (json.RawMessage, error)

// Do implements Adapter.
func (f AdapterFunc) Do(ctx context.Context, opts Options) (json.RawMessage, error) {
	return f(ctx, opts)
}

// ResponseHandler post-processes a resolved adapter response.
type ResponseHandler func(json.RawMessage) (json.RawMessage, error)

// Request is an immutable request descriptor.
type Request struct {
	adapter    Adapter
	path       []string
	headers    map[string]string
	putHeaders map[string]string
	query      url.Values
	payload    any
	hasPayload bool
	err        error
	handler    ResponseHandler
}

// New returns an empty Request bound to adapter.
func New(adapter Adapter) Request {
	return Request{adapter: adapter}
}

// Path appends path segments.
func (r Request) Path(segments ...string) Request {
	path := make([]string, 0, len(r.path)+len(segments))
	path = append(path, r.path...)
	for _, s := range segments {
		if s == "" {
			continue
		}
		path = append(path, s)
	}
	r.path = path
	return r
}

// Payload sets the request body.
func (r Request) Payload(v any) Request {
	r.payload = v
	r.hasPayload = true
	return r
}

// Headers shallow-merges h into the headers sent with every method.
func (r Request) Headers(h map[string]string) Request {
	r.headers = merge(r.headers, h)
	return r
}

// PutHeaders shallow-merges h into the headers that are only sent when the
// request is eventually executed with PUT.
func (r Request) PutHeaders(h map[string]string) Request {
	r.putHeaders = merge(r.putHeaders, h)
	return r
}

// DeleteHeader removes name from both the regular and the PUT-only headers.
func (r Request) DeleteHeader(name string) Request {
	r.headers = without(r.headers, name)
	r.putHeaders = without(r.putHeaders, name)
	return r
}

// Query merges query parameters.
func (r Request) Query(v url.Values) Request {
	q := make(url.Values, len(r.query)+len(v))
	for k, vals := range r.query {
		q[k] = append([]string(nil), vals...)
	}
	for k, vals := range v {
		q[k] = append([]string(nil), vals...)
	}
	r.query = q
	return r
}

// Throw marks the request as permanently failing with err. Sending it never
// reaches the adapter.
func (r Request) Throw(err error) Request {
	r.err = err
	return r
}

// RejectEmpty makes an empty response fail with ErrResponseNotAvailable.
func (r Request) RejectEmpty() Request {
	r.handler = rejectEmpty
	return r
}

// Err reports the error installed with Throw, if any.
func (r Request) Err() error { return r.err }

// PathString returns the joined path.
func (r Request) PathString() string { return strings.Join(r.path, "/") }

// Options assembles the adapter options for method without sending.
func (r Request) Options(method string) Options {
	headers := merge(nil, r.headers)
	if method == http.MethodPut {
		headers = merge(headers, r.putHeaders)
	}
	opts := Options{
		Method:  method,
		Path:    r.PathString(),
		Headers: headers,
		Query:   r.query,
	}
	if r.hasPayload {
		opts.Payload = r.payload
	}
	return opts
}

// Send executes the request with method.
func (r Request) Send(ctx context.Context, method string) (json.RawMessage, error) {
	if r.err != nil {
		return nil, r.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := r.adapter.Do(ctx, r.Options(method))
	if err != nil {
		return nil, err
	}
	if r.handler != nil {
		return r.handler(resp)
	}
	return resp, nil
}

// Get sends the request with GET.
func (r Request) Get(ctx context.Context) (json.RawMessage, error) {
	return r.Send(ctx, http.MethodGet)
}

// Post sends the request with POST.
func (r Request) Post(ctx context.Context) (json.RawMessage, error) {
	return r.Send(ctx, http.MethodPost)
}

// Put sends the request with PUT.
func (r Request) Put(ctx context.Context) (json.RawMessage, error) {
	return r.Send(ctx, http.MethodPut)
}

// Delete sends the request with DELETE.
func (r Request) Delete(ctx context.Context) (json.RawMessage, error) {
	return r.Send(ctx, http.MethodDelete)
}

// IsEmpty reports whether resp carries no body.
func IsEmpty(resp json.RawMessage) bool {
	trimmed := bytes.TrimSpace(resp)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func rejectEmpty(resp json.RawMessage) (json.RawMessage, error) {
	if IsEmpty(resp) {
		return nil, ErrResponseNotAvailable
	}
	return resp, nil
}

// merge returns a copy of base with h applied; nil when the result is empty.
func merge(base, h map[string]string) map[string]string {
	if len(base) == 0 && len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(h))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range h {
		out[k] = v
	}
	return out
}

func without(base map[string]string, name string) map[string]string {
	if _, ok := base[name]; !ok {
		return base
	}
	out := make(map[string]string, len(base))
	for k, v := range base {
		if k != name {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
