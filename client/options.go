package client

// Functional options that configure the Client during construction.

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cmsweb/cmaclient/client/internal/resources"
)

// Option configures a Client during construction in New.
//
// Options are applied before the token transport wrapper is installed, so
// transport-related options (like debug logging) sit underneath it.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client Timeout. The value must be
// greater than zero. Prefer per-request context deadlines where possible.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithHTTPClient replaces the http.Client. Apply it before WithHTTPTimeout
// and WithDebugLogging, which modify the current client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.http = hc
		return nil
	}
}

// WithDebugLogging wraps the client's transport so each request/response is
// logged when enabled is true. Bodies are logged; the bearer token is not.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			if _, already := c.http.Transport.(*debugTransport); !already {
				c.http.Transport = &debugTransport{base: c.http.Transport}
			}
		}
		return nil
	}
}

// WithQueueConfig tunes the async mutation queue. Zero fields keep their
// defaults. The error handler is set with WithAsyncErrorHandler.
func WithQueueConfig(cfg QueueConfig) Option {
	return func(c *Client) error {
		if cfg.Shards < 0 || cfg.QueueSize < 0 || cfg.MaxAttempts < 0 {
			return fmt.Errorf("queue config values must be >= 0")
		}
		cfg.ErrorHandler = nil
		c.queue = cfg
		return nil
	}
}

// WithAsyncErrorHandler receives the final error of every failed async
// mutation with the identity of its entity.
func WithAsyncErrorHandler(fn func(identity string, err error)) Option {
	return func(c *Client) error {
		c.onError = fn
		return nil
	}
}

// WithPollConfig bounds asset processing polls.
func WithPollConfig(p resources.PollConfig) Option {
	return func(c *Client) error {
		if p.Interval < 0 || p.Timeout < 0 {
			return fmt.Errorf("poll interval and timeout must be >= 0")
		}
		c.poll = p
		return nil
	}
}

// withExecutor injects the async runner; tests use it.
func withExecutor(e executor) Option {
	return func(c *Client) error {
		c.exec = e
		return nil
	}
}
