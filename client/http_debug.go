package client

import (
	"net/http"
	"net/http/httputil"
	"os"
	"regexp"

	"github.com/rs/zerolog/log"
)

// debugTransport logs every request and response with bodies. It sits below
// the token transport, so the Authorization header is masked in the dump.
//
// Enable with WithDebugLogging(true), or without code changes by exporting
// CMA_DEBUG=true. Bodies may hold content that should not reach shared logs.
type debugTransport struct{ base http.RoundTripper }

var authHeader = regexp.MustCompile(`(?mi)^Authorization: .*$`)

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := dt.base
	if base == nil {
		base = http.DefaultTransport
	}
	if reqDump, err := httputil.DumpRequestOut(req, true); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).
			Str("request_dump", redact(reqDump)).Msg("HTTP request")
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, err
	}

	if respDump, err := httputil.DumpResponse(resp, true); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status_code", resp.StatusCode).
			Str("response_dump", string(respDump)).Msg("HTTP response")
	}
	return resp, nil
}

func redact(dump []byte) string {
	return authHeader.ReplaceAllString(string(dump), "Authorization: Bearer ***")
}

// debugLoggingRequested reports whether CMA_DEBUG or DEBUG is "true".
func debugLoggingRequested() bool {
	return os.Getenv("CMA_DEBUG") == "true" || os.Getenv("DEBUG") == "true"
}
