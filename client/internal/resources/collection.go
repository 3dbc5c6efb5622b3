// Package resources defines the concrete resource kinds of the management
// API (spaces, environments, content types, entries, assets, locales and
// API keys) and the collections that fetch and list them.
package resources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cmsweb/cmaclient/client/internal/entity"
	"github.com/cmsweb/cmaclient/client/internal/linkresolver"
	"github.com/cmsweb/cmaclient/client/internal/persistence"
	"github.com/cmsweb/cmaclient/client/internal/value"
)

// Collection fetches and creates records of one kind under one endpoint.
// Entities it returns are canonical instances of the context's identity map.
type Collection[P any] struct {
	kind *entity.Kind[P]
	pc   *persistence.Context

	// dispatch wraps records of other kinds met in list includes. Nil keeps
	// them as raw documents.
	dispatch func(st *staging, obj *value.Object) (any, error)
}

// NewCollection returns a collection of kind rooted at pc's endpoint.
func NewCollection[P any](kind *entity.Kind[P], pc *persistence.Context) *Collection[P] {
	return &Collection[P]{kind: kind, pc: pc}
}

// Kind returns the collection's kind.
func (c *Collection[P]) Kind() *entity.Kind[P] { return c.kind }

// Context returns the collection's persistence context.
func (c *Collection[P]) Context() *persistence.Context { return c.pc }

// New returns an unsaved entity. Save POSTs it to the collection.
func (c *Collection[P]) New(data P) *entity.Entity[P] {
	return entity.New(c.kind, c.pc, &entity.Record[P]{Data: data})
}

// NewWithID returns an unsaved entity with a client-chosen id. Save PUTs it
// to the collection without a version header.
func (c *Collection[P]) NewWithID(id string, data P) *entity.Entity[P] {
	return entity.New(c.kind, c.pc, &entity.Record[P]{Sys: entity.Sys{ID: id}, Data: data})
}

// Wrap turns a raw record into a stored entity.
func (c *Collection[P]) Wrap(obj *value.Object, opts ...entity.Option) (*entity.Entity[P], error) {
	e, err := entity.FromObject(c.kind, c.pc, obj, opts...)
	if err != nil {
		return nil, err
	}
	return persistence.Store(c.pc, e), nil
}

// Get fetches one record by id.
func (c *Collection[P]) Get(ctx context.Context, id string) (*entity.Entity[P], error) {
	if id == "" {
		return nil, fmt.Errorf("resources: get %s: empty id", c.kind.Type)
	}
	raw, err := c.pc.Endpoint(id).RejectEmpty().Get(ctx)
	if err != nil {
		return nil, err
	}
	obj, err := value.ParseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("resources: parse %s %s: %w", c.kind.Type, id, err)
	}
	return c.Wrap(obj)
}

// Page is one page of a list response.
type Page[P any] struct {
	Total int
	Skip  int
	Limit int
	Items []*entity.Entity[P]
}

// List queries the collection. Links between the returned items and their
// includes are resolved; included records are wrapped and stored too.
//
// Links point at canonical instances, but the response's documents are
// merged into them only after every link has been patched, so readers of an
// entity never see a document that is still being resolved.
func (c *Collection[P]) List(ctx context.Context, q Query) (*Page[P], error) {
	raw, err := c.pc.Endpoint().Query(q.Values()).RejectEmpty().Get(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := linkresolver.ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	st := &staging{}
	items, err := linkresolver.Resolve(resp, func(obj *value.Object) (any, error) {
		return c.wrapStaged(st, obj)
	})
	if err != nil {
		return nil, fmt.Errorf("resources: list %s: %w", c.kind.Type, err)
	}
	st.commit()

	page := &Page[P]{Total: resp.Total, Skip: resp.Skip, Limit: resp.Limit, Items: make([]*entity.Entity[P], 0, len(items))}
	for _, it := range items {
		e, ok := it.(*entity.Entity[P])
		if !ok {
			return nil, fmt.Errorf("resources: list %s returned %T", c.kind.Type, it)
		}
		page.Items = append(page.Items, e)
	}
	return page, nil
}

func (c *Collection[P]) wrapStaged(st *staging, obj *value.Object) (any, error) {
	if obj.Str("sys", "type") == c.kind.Type {
		return c.stage(st, obj)
	}
	if c.dispatch != nil {
		return c.dispatch(st, obj)
	}
	return obj, nil
}

// stage wraps obj while a list response is resolved. It returns the
// canonical instance for obj's identity; when there is none yet, an entity
// over a private copy of obj takes that place. The entity over obj itself,
// whose links are still being patched, is stored by st.commit.
func (c *Collection[P]) stage(st *staging, obj *value.Object) (*entity.Entity[P], error) {
	e, err := entity.FromObject(c.kind, c.pc, obj)
	if err != nil {
		return nil, err
	}
	if _, ok := e.Identity(); !ok {
		return e, nil
	}
	placeholder, err := entity.FromObject(c.kind, c.pc, obj.DeepClone())
	if err != nil {
		return nil, err
	}
	canonical := persistence.Reserve(c.pc, placeholder)
	st.pending = append(st.pending, func() { persistence.Store(c.pc, e) })
	return canonical, nil
}

// staging holds the stores deferred until a list response is resolved.
type staging struct {
	pending []func()
}

func (st *staging) commit() {
	for _, store := range st.pending {
		store()
	}
}

// wrapInto wraps obj with c, staged when st is set.
func wrapInto[P any](c *Collection[P], st *staging, obj *value.Object) (any, error) {
	if st == nil {
		return c.Wrap(obj)
	}
	return c.stage(st, obj)
}

// Query builds list parameters. It is a value; every method returns a copy.
type Query struct {
	v url.Values
}

// NewQuery returns an empty query.
func NewQuery() Query { return Query{} }

func (q Query) with(key string, vals ...string) Query {
	out := make(url.Values, len(q.v)+1)
	for k, vs := range q.v {
		out[k] = append([]string(nil), vs...)
	}
	out[key] = vals
	return Query{v: out}
}

// ContentType restricts entries to one content type.
func (q Query) ContentType(id string) Query { return q.with("content_type", id) }

// Include sets how many levels of links are returned in includes.
func (q Query) Include(levels int) Query { return q.with("include", strconv.Itoa(levels)) }

// Limit sets the page size.
func (q Query) Limit(n int) Query { return q.with("limit", strconv.Itoa(n)) }

// Skip sets the page offset.
func (q Query) Skip(n int) Query { return q.with("skip", strconv.Itoa(n)) }

// Order sorts by fields; prefix a field with "-" for descending.
func (q Query) Order(fields ...string) Query { return q.with("order", strings.Join(fields, ",")) }

// Where adds a field filter such as Where("fields.slug", "home") or
// Where("sys.id[in]", "a,b").
func (q Query) Where(field, val string) Query { return q.with(field, val) }

// Values returns the encoded parameters, nil when empty.
func (q Query) Values() url.Values {
	if len(q.v) == 0 {
		return nil
	}
	out := make(url.Values, len(q.v))
	for k, vs := range q.v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
