// Package client is the Go SDK for the content management API: spaces,
// environments and their resources as versioned entities, with an identity
// map per space and an ordered async queue for state transitions.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cmsweb/cmaclient/client/internal/config"
	"github.com/cmsweb/cmaclient/client/internal/entity"
	"github.com/cmsweb/cmaclient/client/internal/job"
	"github.com/cmsweb/cmaclient/client/internal/request"
	"github.com/cmsweb/cmaclient/client/internal/resources"
	"github.com/cmsweb/cmaclient/client/internal/shardqueue"
	"github.com/cmsweb/cmaclient/client/internal/transport"
)

// Client is the entry point of the SDK. It owns the HTTP stack, the spaces
// root collection and the async mutation queue.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	queue   shardqueue.Config
	poll    resources.PollConfig
	onError func(identity string, err error)

	exec   executor
	spaces *resources.Spaces

	closed atomic.Bool
}

// New constructs a Client for the API at baseURL authenticating with token.
// Additional options can be provided via functional arguments.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		queue:   shardqueue.Config{Shards: 4, QueueSize: 1000},
		poll:    resources.DefaultPollConfig,
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.wrapTransportWithToken()
	if c.exec == nil {
		cfg := c.queue
		cfg.ErrorHandler = c.handleAsyncError
		c.exec = shardqueue.NewExecutor(cfg)
	}
	c.spaces = resources.NewSpaces(request.New(transport.New(c.baseURL, c.http)), c.poll)
	return c, nil
}

// NewFromEnv constructs a Client from CMA_* environment variables. Options
// are applied after the environment settings.
func NewFromEnv(opts ...Option) (*Client, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithHTTPTimeout(cfg.HTTPTimeout),
		WithDebugLogging(cfg.Debug),
		WithQueueConfig(shardqueue.Config{
			Shards:      cfg.QueueShards,
			QueueSize:   cfg.QueueSize,
			MaxAttempts: cfg.QueueMaxAttempts,
		}),
		WithPollConfig(resources.PollConfig{Interval: cfg.AssetPollInterval, Timeout: cfg.AssetProcessTimeout}),
	}
	return New(cfg.BaseURL, cfg.AccessToken, append(base, opts...)...)
}

// wrapTransportWithToken installs the bearer token on every request.
func (c *Client) wrapTransportWithToken() {
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http.Transport = &tokenTransport{base: base, token: c.token}
}

type tokenTransport struct {
	base  http.RoundTripper
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(cloned)
}

// Close drains the async mutation queue and stops it. Safe to call multiple
// times.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.exec != nil {
		c.exec.Stop()
	}
	return nil
}

// --------------------------------------------------------------------
// Resource roots
// --------------------------------------------------------------------

// Spaces returns the root collection of spaces.
func (c *Client) Spaces() *Spaces { return c.spaces }

// GetSpace fetches a space and returns it with its resource scope.
func (c *Client) GetSpace(ctx context.Context, id string) (*Space, error) {
	e, err := c.spaces.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.spaces.Space(e), nil
}

// Environment fetches the space and returns the scope of its environment
// envID. The scope shares the space's identity map.
func (c *Client) Environment(ctx context.Context, spaceID, envID string) (*Scope, error) {
	sp, err := c.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return sp.InEnvironment(envID), nil
}

// --------------------------------------------------------------------
// Async mutations
// --------------------------------------------------------------------

// PublishAsync queues a publish of e. Mutations queued for one entity run in
// submission order, each with the version the previous one returned. ctx
// bounds the queued mutation as well as the enqueue; failures go to the
// handler set with WithAsyncErrorHandler.
func (c *Client) PublishAsync(ctx context.Context, e entity.PublishableEntity) error {
	return c.enqueue(ctx, "publish", e, e.Publish)
}

// UnpublishAsync queues an unpublish of e.
func (c *Client) UnpublishAsync(ctx context.Context, e entity.PublishableEntity) error {
	return c.enqueue(ctx, "unpublish", e, e.Unpublish)
}

// ArchiveAsync queues an archive of e.
func (c *Client) ArchiveAsync(ctx context.Context, e entity.ArchivableEntity) error {
	return c.enqueue(ctx, "archive", e, e.Archive)
}

// UnarchiveAsync queues an unarchive of e.
func (c *Client) UnarchiveAsync(ctx context.Context, e entity.ArchivableEntity) error {
	return c.enqueue(ctx, "unarchive", e, e.Unarchive)
}

// DeleteAsync queues a delete of e.
func (c *Client) DeleteAsync(ctx context.Context, e entity.Deletable) error {
	return c.enqueue(ctx, "delete", e, e.Delete)
}

func (c *Client) enqueue(ctx context.Context, op string, e entity.Versioned, fn func(context.Context) error) error {
	if c.closed.Load() {
		return ErrClosed
	}
	key, ok := e.Identity()
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNoID)
	}
	err := c.exec.Submit(ctx, key, job.New(op, key, fn))
	switch {
	case errors.Is(err, shardqueue.ErrQueueFull):
		return fmt.Errorf("%w: %v", ErrBackPressure, err)
	case errors.Is(err, shardqueue.ErrExecutorClosed):
		return ErrClosed
	case err != nil:
		return err
	}
	mutationsEnqueuedTotal.WithLabelValues(op).Inc()
	return nil
}

// AwaitConsistency blocks until every mutation queued for the entity with
// identity before the call has run.
func (c *Client) AwaitConsistency(ctx context.Context, identity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.exec.Barrier(ctx, identity); err != nil {
		if errors.Is(err, shardqueue.ErrExecutorClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (c *Client) handleAsyncError(identity string, err error) {
	mutationFailuresTotal.WithLabelValues(job.ShardLabel(identity)).Inc()
	if c.onError != nil {
		c.onError(identity, err)
		return
	}
	log.Error().Err(err).Str("identity", identity).Msg("async mutation failed")
}
