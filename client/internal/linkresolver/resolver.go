// Package linkresolver turns a query response (a flat list of records plus an
// includes side-table) into an in-memory graph in which every link to a
// record present in the response points at that record's wrapped instance.
//
// Records are processed one at a time, items first and then includes. For
// each record the resolver (1) patches links to already-seen records and
// remembers links to unseen ones, (2) wraps and indexes the record, and
// (3) patches every remembered link that targets it. Forward and circular
// references are therefore resolved in a single pass. Links to records that
// are absent from the response are left as *value.Link.
package linkresolver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmsweb/cmaclient/client/internal/value"
)

// ErrDuplicateInstance is returned when a response contains two records with
// the same type and id.
var ErrDuplicateInstance = errors.New("Instance already in map")

// Response is a parsed query response.
type Response struct {
	Type     string
	Total    int
	Skip     int
	Limit    int
	Items    []*value.Object
	Includes map[string][]*value.Object

	includeOrder []string
}

// IncludeTypes returns the include types in document order.
func (r *Response) IncludeTypes() []string {
	return append([]string(nil), r.includeOrder...)
}

// AddIncludes appends records of type typ to the includes table.
func (r *Response) AddIncludes(typ string, records ...*value.Object) {
	if r.Includes == nil {
		r.Includes = make(map[string][]*value.Object)
	}
	if _, ok := r.Includes[typ]; !ok {
		r.includeOrder = append(r.includeOrder, typ)
	}
	r.Includes[typ] = append(r.Includes[typ], records...)
}

// ParseResponse parses {sys, total, skip, limit, items, includes}.
func ParseResponse(raw json.RawMessage) (*Response, error) {
	obj, err := value.ParseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("linkresolver: parse response: %w", err)
	}
	resp := &Response{Type: obj.Str("sys", "type")}
	for key, dst := range map[string]*int{"total": &resp.Total, "skip": &resp.Skip, "limit": &resp.Limit} {
		if v, ok := obj.Get(key); ok {
			if s, ok := v.(value.Scalar); ok {
				*dst, _ = s.Int()
			}
		}
	}

	if v, ok := obj.Get("items"); ok {
		arr, ok := v.(*value.Array)
		if !ok {
			return nil, fmt.Errorf("linkresolver: items is %T, want array", v)
		}
		for i, item := range arr.Items {
			rec, ok := item.(*value.Object)
			if !ok {
				return nil, fmt.Errorf("linkresolver: items[%d] is %T, want record", i, item)
			}
			resp.Items = append(resp.Items, rec)
		}
	}

	if v, ok := obj.Get("includes"); ok {
		inc, ok := v.(*value.Object)
		if !ok {
			return nil, fmt.Errorf("linkresolver: includes is %T, want object", v)
		}
		for _, typ := range inc.Keys() {
			tv, _ := inc.Get(typ)
			arr, ok := tv.(*value.Array)
			if !ok {
				return nil, fmt.Errorf("linkresolver: includes.%s is %T, want array", typ, tv)
			}
			records := make([]*value.Object, 0, len(arr.Items))
			for i, item := range arr.Items {
				rec, ok := item.(*value.Object)
				if !ok {
					return nil, fmt.Errorf("linkresolver: includes.%s[%d] is %T, want record", typ, i, item)
				}
				records = append(records, rec)
			}
			resp.AddIncludes(typ, records...)
		}
	}
	return resp, nil
}

// WrapFunc turns a raw record into the caller's instance type.
type WrapFunc[T any] func(record *value.Object) (T, error)

// Resolve links the response's records together and returns the wrapped
// items in their original order. Included records are wrapped too; wrap may
// use that side effect (e.g. to register them in an identity map) but they
// are not returned.
//
// With a nil wrap, records are their own instances and T must accept a
// *value.Object. A wrap error, or a duplicate (type, id), fails the whole
// call and no partial result is returned.
func Resolve[T any](resp *Response, wrap WrapFunc[T]) ([]T, error) {
	if wrap == nil {
		wrap = identityWrap[T]
	}
	r := &resolver[T]{
		wrap:      wrap,
		instances: make(map[string]map[string]T),
		pending:   make(map[string]map[string][]slot),
	}

	items := make([]T, 0, len(resp.Items))
	for _, rec := range resp.Items {
		inst, err := r.process(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, inst)
	}
	for _, typ := range resp.includeOrder {
		for _, rec := range resp.Includes[typ] {
			if _, err := r.process(rec); err != nil {
				return nil, err
			}
		}
	}
	return items, nil
}

func identityWrap[T any](record *value.Object) (T, error) {
	inst, ok := any(record).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("linkresolver: cannot use *value.Object as %T without a wrap function", zero)
	}
	return inst, nil
}

// slot is a container position holding an unresolved link.
type slot struct {
	link *value.Link
	obj  *value.Object
	key  string
	arr  *value.Array
	idx  int
}

func (s slot) set(v value.Value) {
	if s.obj != nil {
		s.obj.Set(s.key, v)
		return
	}
	s.arr.Items[s.idx] = v
}

// resolver is the working state of one Resolve call.
type resolver[T any] struct {
	wrap      WrapFunc[T]
	instances map[string]map[string]T
	pending   map[string]map[string][]slot
}

func (r *resolver[T]) process(rec *value.Object) (T, error) {
	r.collect(rec)
	inst, err := r.store(rec)
	if err != nil {
		return inst, err
	}
	r.resolveTo(rec, inst)
	return inst, nil
}

// collect walks every property of v depth-first, replacing links to known
// instances and remembering the rest.
func (r *resolver[T]) collect(v value.Value) {
	switch node := v.(type) {
	case *value.Object:
		for _, key := range node.Keys() {
			child, _ := node.Get(key)
			if link, ok := child.(*value.Link); ok {
				r.link(slot{link: link, obj: node, key: key})
				continue
			}
			r.collect(child)
		}
	case *value.Array:
		for i, child := range node.Items {
			if link, ok := child.(*value.Link); ok {
				r.link(slot{link: link, arr: node, idx: i})
				continue
			}
			r.collect(child)
		}
	}
}

func (r *resolver[T]) link(s slot) {
	if inst, ok := r.instances[s.link.LinkType][s.link.ID]; ok {
		s.set(&value.Ref{Link: s.link, Target: inst})
		return
	}
	byID, ok := r.pending[s.link.LinkType]
	if !ok {
		byID = make(map[string][]slot)
		r.pending[s.link.LinkType] = byID
	}
	byID[s.link.ID] = append(byID[s.link.ID], s)
}

func (r *resolver[T]) store(rec *value.Object) (T, error) {
	typ, id := rec.Str("sys", "type"), rec.Str("sys", "id")
	if typ == "" || id == "" {
		// Nothing can link to a record without an identity.
		return r.wrap(rec)
	}
	if _, exists := r.instances[typ][id]; exists {
		var zero T
		return zero, fmt.Errorf("%w: %s %s", ErrDuplicateInstance, typ, id)
	}
	inst, err := r.wrap(rec)
	if err != nil {
		return inst, fmt.Errorf("linkresolver: wrap %s %s: %w", typ, id, err)
	}
	byID, ok := r.instances[typ]
	if !ok {
		byID = make(map[string]T)
		r.instances[typ] = byID
	}
	byID[id] = inst
	return inst, nil
}

func (r *resolver[T]) resolveTo(rec *value.Object, inst T) {
	typ, id := rec.Str("sys", "type"), rec.Str("sys", "id")
	slots := r.pending[typ][id]
	if len(slots) == 0 {
		return
	}
	for _, s := range slots {
		s.set(&value.Ref{Link: s.link, Target: inst})
	}
	delete(r.pending[typ], id)
}
