// Package transport is the HTTP implementation of request.Adapter for the
// content management API.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	cmaerrors "github.com/cmsweb/cmaclient/client/internal/errors"
	"github.com/cmsweb/cmaclient/client/internal/request"
)

const (
	// ContentType is sent with every request carrying a body.
	ContentType = "application/vnd.contentful.management.v1+json"

	// RequestIDHeader correlates client logs with server logs.
	RequestIDHeader = "X-Request-Id"
)

// Adapter sends request.Options over HTTP. Authentication and debugging live
// in the RoundTripper chain of the *http.Client it is built on.
type Adapter struct {
	rc *resty.Client
}

var _ request.Adapter = (*Adapter)(nil)

// New returns an Adapter rooted at baseURL. A nil hc uses a client with a
// 30s timeout.
func New(baseURL string, hc *http.Client) *Adapter {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	rc := resty.NewWithClient(hc).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	return &Adapter{rc: rc}
}

// Do implements request.Adapter. A 2xx response with an empty body resolves
// to nil; any other status fails with a *errors.ClassifiedError.
func (a *Adapter) Do(ctx context.Context, opts request.Options) (json.RawMessage, error) {
	path := "/" + strings.TrimLeft(opts.Path, "/")
	reqID := uuid.NewString()

	r := a.rc.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, reqID).
		SetHeaders(opts.Headers)
	if len(opts.Query) > 0 {
		r.SetQueryParamsFromValues(opts.Query)
	}
	if opts.Payload != nil {
		body, err := json.Marshal(opts.Payload)
		if err != nil {
			return nil, fmt.Errorf("transport: encode %s %s payload: %w", opts.Method, path, err)
		}
		r.SetHeader("Content-Type", ContentType).SetBody(body)
	}

	start := time.Now()
	resp, err := r.Execute(opts.Method, path)
	elapsed := time.Since(start)
	if err != nil {
		requestsTotal.WithLabelValues(opts.Method, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug().Err(err).Str("method", opts.Method).Str("path", path).Str("request_id", reqID).Msg("CMA request failed")
		return nil, cmaerrors.NewNetworkError(opts.Method, path, err)
	}

	status := resp.StatusCode()
	requestsTotal.WithLabelValues(opts.Method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(opts.Method).Observe(elapsed.Seconds())
	log.Debug().
		Str("method", opts.Method).
		Str("path", path).
		Int("status", status).
		Dur("elapsed", elapsed).
		Str("request_id", reqID).
		Msg("CMA request")

	if status < 200 || status > 299 {
		return nil, cmaerrors.ClassifyHTTPError(opts.Method, path, status, resp.Body())
	}
	body := resp.Body()
	if request.IsEmpty(body) {
		return nil, nil
	}
	return json.RawMessage(body), nil
}
