// Package persistence binds a request scope to the identity map shared by all
// entities under one resource root.
package persistence

import (
	"sync"

	"github.com/cmsweb/cmaclient/client/internal/identitymap"
	"github.com/cmsweb/cmaclient/client/internal/request"
)

// VersionHeader carries the optimistic-concurrency version on mutations.
const VersionHeader = "X-Contentful-Version"

// Context pairs a Request with a lazily created IdentityMap.
type Context struct {
	req request.Request

	once sync.Once
	imap *identitymap.IdentityMap
}

// New returns a Context for req. Its identity map is created on first use.
func New(req request.Request) *Context {
	return &Context{req: req}
}

// Endpoint returns the context's request scoped with extra path segments.
func (c *Context) Endpoint(segments ...string) request.Request {
	return c.req.Path(segments...)
}

// IdentityMap returns the context's map, creating it on first use.
func (c *Context) IdentityMap() *identitymap.IdentityMap {
	c.once.Do(func() {
		if c.imap == nil {
			c.imap = identitymap.New()
		}
	})
	return c.imap
}

// Store registers e in the context's identity map and returns the canonical
// instance.
func (c *Context) Store(e identitymap.Storable) identitymap.Storable {
	return c.IdentityMap().Store(e)
}

// WithEndpoint returns a Context bound to req that shares this context's
// identity map.
func (c *Context) WithEndpoint(req request.Request) *Context {
	return &Context{req: req, imap: c.IdentityMap()}
}

// Child returns a Context scoped under path with its own identity map. The
// version header is stripped so a child resource never inherits the
// parent's conditional-update semantics.
func (c *Context) Child(path ...string) *Context {
	return New(c.req.Path(path...).DeleteHeader(VersionHeader))
}

// Store is Context.Store for callers that know the concrete type.
func Store[E identitymap.Storable](c *Context, e E) E {
	return identitymap.StoreAs(c.IdentityMap(), e)
}

// Reserve returns the canonical instance for e's identity, registering e when
// there is none. Existing instances are left untouched.
func Reserve[E identitymap.Storable](c *Context, e E) E {
	got, _ := c.IdentityMap().LoadOrStore(e)
	if canonical, ok := got.(E); ok {
		return canonical
	}
	return e
}
