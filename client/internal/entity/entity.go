// Package entity implements the behaviour shared by every resource kind:
// versioning, the draft/published/archived/deleted state machine, and
// save/delete over a persistence context.
//
// Entity is generic over the payload type; kind-specific behaviour is
// supplied through Kind hooks and capability flags rather than subtypes.
package entity

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cmsweb/cmaclient/client/internal/identitymap"
	"github.com/cmsweb/cmaclient/client/internal/persistence"
	"github.com/cmsweb/cmaclient/client/internal/value"
)

// Entity wraps one record and the persistence context that can fetch and
// mutate it. It is safe for concurrent use.
type Entity[P any] struct {
	kind *Kind[P]
	pc   *persistence.Context

	mu               sync.RWMutex
	data             *Record[P]
	deletedAtVersion *int
	snapshot         bool

	childOnce sync.Once
	child     *persistence.Context
}

// Option configures an Entity at construction.
type Option func(*options)

type options struct {
	snapshot bool
}

// AsPublishedSnapshot marks the entity as the published copy of its record.
func AsPublishedSnapshot() Option {
	return func(o *options) { o.snapshot = true }
}

// New wraps rec. A nil rec yields a new, unsaved entity of kind.
func New[P any](kind *Kind[P], pc *persistence.Context, rec *Record[P], opts ...Option) *Entity[P] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if rec == nil {
		rec = &Record[P]{}
	}
	if rec.Sys.Type == "" {
		rec.Sys.Type = kind.Type
	}
	return &Entity[P]{kind: kind, pc: pc, data: rec, snapshot: o.snapshot}
}

// FromObject wraps a parsed record document.
func FromObject[P any](kind *Kind[P], pc *persistence.Context, obj *value.Object, opts ...Option) (*Entity[P], error) {
	rec, err := decodeRecord(kind.Codec, obj)
	if err != nil {
		return nil, err
	}
	return New(kind, pc, rec, opts...), nil
}

// FromJSON wraps a raw record response.
func FromJSON[P any](kind *Kind[P], pc *persistence.Context, raw json.RawMessage, opts ...Option) (*Entity[P], error) {
	obj, err := value.ParseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("entity: parse %s: %w", kind.Type, err)
	}
	return FromObject(kind, pc, obj, opts...)
}

// Kind returns the entity's kind.
func (e *Entity[P]) Kind() *Kind[P] { return e.kind }

// Context returns the persistence context the entity belongs to.
func (e *Entity[P]) Context() *persistence.Context { return e.pc }

// Record returns a copy of the current record. The payload is shared when P
// is a reference type.
func (e *Entity[P]) Record() Record[P] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.data
}

// Sys returns a copy of the sys block.
func (e *Entity[P]) Sys() Sys { return e.state().sys }

// Payload returns the domain payload.
func (e *Entity[P]) Payload() P {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.data.Data
}

// SetPayload replaces the domain payload. The change is local until Save.
func (e *Entity[P]) SetPayload(p P) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := *e.data
	rec.Data = p
	e.data = &rec
}

// ID returns sys.id, empty for unsaved entities.
func (e *Entity[P]) ID() string { return e.state().sys.ID }

// Type returns sys.type.
func (e *Entity[P]) Type() string { return e.state().sys.Type }

// IsPublishedSnapshot reports whether the entity is a published copy.
func (e *Entity[P]) IsPublishedSnapshot() bool { return e.snapshot }

// Name returns the kind's display name for the payload.
func (e *Entity[P]) Name() string {
	if e.kind.Name == nil {
		return ""
	}
	return e.kind.Name(e.Payload())
}

// CreatedAt returns sys.createdAt in ISO-8601, or "".
func (e *Entity[P]) CreatedAt() string {
	if ts := e.state().sys.CreatedAt; ts != nil {
		return ts.String()
	}
	return ""
}

// UpdatedAt returns sys.updatedAt in ISO-8601, or "".
func (e *Entity[P]) UpdatedAt() string {
	if ts := e.state().sys.UpdatedAt; ts != nil {
		return ts.String()
	}
	return ""
}

// Identity returns the identity-map key "{type}.{id}", unless the kind
// overrides it. Entities without an id have no identity.
func (e *Entity[P]) Identity() (string, bool) {
	if e.kind.Identity != nil {
		return e.kind.Identity(e)
	}
	s := e.state().sys
	if s.ID == "" || s.Type == "" {
		return "", false
	}
	return s.Type + "." + s.ID, true
}

// Absorb replaces the entity's record with src's. It implements the in-place
// update the identity map performs on the canonical instance.
func (e *Entity[P]) Absorb(src identitymap.Storable) bool {
	s, ok := src.(*Entity[P])
	if !ok {
		return false
	}
	if s == e {
		return true
	}
	s.mu.RLock()
	rec := *s.data
	s.mu.RUnlock()

	e.mu.Lock()
	e.data = &rec
	e.mu.Unlock()
	return true
}

// Serialize returns what is sent as the payload on save.
func (e *Entity[P]) Serialize() (any, error) {
	rec := e.Record()
	if e.kind.Serialize != nil {
		return e.kind.Serialize(&rec)
	}
	return EncodeRecord(e.kind.Codec, &rec)
}

// Document returns the full record document.
func (e *Entity[P]) Document() (*value.Object, error) {
	rec := e.Record()
	return EncodeRecord(e.kind.Codec, &rec)
}

// MarshalJSON encodes the full record.
func (e *Entity[P]) MarshalJSON() ([]byte, error) {
	doc, err := e.Document()
	if err != nil {
		return nil, err
	}
	return doc.MarshalJSON()
}

// ChildContext returns the persistence context for resources nested under
// this entity. It is created once; every call returns the same context, so
// all children share one identity map. An unsaved entity gets a throwaway
// context whose requests fail with ErrNoID.
func (e *Entity[P]) ChildContext() *persistence.Context {
	if e.IsNew() {
		return persistence.New(e.Endpoint())
	}
	e.childOnce.Do(func() {
		e.child = persistence.New(e.Endpoint()).Child()
	})
	return e.child
}

// apply replaces the record with a server response.
func (e *Entity[P]) apply(raw json.RawMessage) error {
	obj, err := value.ParseObject(raw)
	if err != nil {
		return fmt.Errorf("entity: parse %s response: %w", e.kind.Type, err)
	}
	rec, err := decodeRecord(e.kind.Codec, obj)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.data = rec
	e.mu.Unlock()
	return nil
}

var (
	_ Deletable         = (*Entity[struct{}])(nil)
	_ PublishableEntity = (*Entity[struct{}])(nil)
	_ ArchivableEntity  = (*Entity[struct{}])(nil)
)
