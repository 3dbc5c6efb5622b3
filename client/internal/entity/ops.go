package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cmsweb/cmaclient/client/internal/persistence"
	"github.com/cmsweb/cmaclient/client/internal/request"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoID is returned by operations that need an endpoint for an
	// entity that was never saved.
	ErrNoID = errors.New("Cannot determine endpoint: Entity does not have id")

	// ErrInvalidTransition is returned when a state-machine guard fails.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnsupported is returned when the kind lacks the capability for an
	// operation.
	ErrUnsupported = errors.New("operation not supported for this kind")
)

// Endpoint returns a request for the entity's own path plus segments. The
// current version is attached as a PUT-only header when non-zero. Without an
// id the request fails with ErrNoID and never reaches the network.
func (e *Entity[P]) Endpoint(segments ...string) request.Request {
	s := e.state()
	if s.sys.ID == "" {
		return e.pc.Endpoint().Throw(ErrNoID)
	}
	req := e.pc.Endpoint(append([]string{s.sys.ID}, segments...)...)
	if v := s.version(); v > 0 {
		req = req.PutHeaders(versionHeader(v))
	}
	return req
}

// Save creates the record (POST to the collection) when the entity has no
// id, or updates it (PUT with the version header when the version is
// non-zero). The response is merged and the entity re-stored; the returned
// entity is the canonical instance, which may be a different object when
// one already existed for this identity.
func (e *Entity[P]) Save(ctx context.Context) (*Entity[P], error) {
	payload, err := e.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", e.kind.Type, err)
	}

	var (
		req    request.Request
		method string
	)
	if e.IsNew() {
		req, method = e.pc.Endpoint(), http.MethodPost
		if e.kind.CreateHeaders != nil {
			rec := e.Record()
			req = req.Headers(e.kind.CreateHeaders(&rec))
		}
	} else {
		req, method = e.Endpoint(), http.MethodPut
	}

	raw, err := req.Payload(payload).Send(ctx, method)
	if err != nil {
		return nil, err
	}
	if err := e.merge(raw); err != nil {
		return nil, err
	}
	return persistence.Store(e.pc, e), nil
}

// Reload fetches the record and merges it.
func (e *Entity[P]) Reload(ctx context.Context) error {
	raw, err := e.Endpoint().Get(ctx)
	if err != nil {
		return err
	}
	return e.merge(raw)
}

// Publish publishes the current version.
func (e *Entity[P]) Publish(ctx context.Context) error {
	return e.publish(ctx, e.Version())
}

// PublishVersion publishes with an explicit version header.
func (e *Entity[P]) PublishVersion(ctx context.Context, version int) error {
	return e.publish(ctx, version)
}

func (e *Entity[P]) publish(ctx context.Context, version int) error {
	req := e.Endpoint("published").PutHeaders(versionHeader(version))
	switch {
	case !e.kind.Has(Publishable):
		req = req.Throw(e.unsupported("publish"))
	case e.IsDeleted():
		req = req.Throw(e.invalid("publish", "entity is deleted"))
	}
	return e.mutate(ctx, req, http.MethodPut)
}

// Unpublish removes the published version.
func (e *Entity[P]) Unpublish(ctx context.Context) error {
	req := e.Endpoint("published")
	if !e.kind.Has(Publishable) {
		req = req.Throw(e.unsupported("unpublish"))
	}
	return e.mutate(ctx, req, http.MethodDelete)
}

// Archive archives an unpublished entity.
func (e *Entity[P]) Archive(ctx context.Context) error {
	req := e.Endpoint("archived")
	switch {
	case !e.kind.Has(Archivable):
		req = req.Throw(e.unsupported("archive"))
	case !e.CanArchive():
		req = req.Throw(e.invalid("archive", "entity is archived or published"))
	}
	return e.mutate(ctx, req, http.MethodPut)
}

// Unarchive restores an archived entity.
func (e *Entity[P]) Unarchive(ctx context.Context) error {
	req := e.Endpoint("archived")
	switch {
	case !e.kind.Has(Archivable):
		req = req.Throw(e.unsupported("unarchive"))
	case !e.CanUnarchive():
		req = req.Throw(e.invalid("unarchive", "entity is not archived"))
	}
	return e.mutate(ctx, req, http.MethodDelete)
}

// Delete deletes the record. The entity keeps its data, is marked deleted at
// its current version and stays in the identity map so holders of the
// reference observe the deletion.
func (e *Entity[P]) Delete(ctx context.Context) error {
	req := e.Endpoint()
	if !e.CanDelete() {
		req = req.Throw(e.invalid("delete", "entity is already deleted"))
	}
	if _, err := req.Delete(ctx); err != nil {
		return err
	}
	v := e.Version()
	e.MarkDeletedAtVersion(&v)
	e.pc.Store(e)
	log.Debug().Str("type", e.kind.Type).Str("id", e.ID()).Int("version", v).Msg("entity deleted")
	return nil
}

// Mutate sends req with method, merges the response and re-stores the
// entity. Kind-specific operations use it for endpoints beyond the common
// state transitions.
func (e *Entity[P]) Mutate(ctx context.Context, req request.Request, method string) error {
	return e.mutate(ctx, req, method)
}

func (e *Entity[P]) mutate(ctx context.Context, req request.Request, method string) error {
	raw, err := req.Send(ctx, method)
	if err != nil {
		return err
	}
	if err := e.merge(raw); err != nil {
		return err
	}
	e.pc.Store(e)
	return nil
}

// merge applies a non-empty response; an empty body leaves data untouched.
func (e *Entity[P]) merge(raw json.RawMessage) error {
	if request.IsEmpty(raw) {
		return nil
	}
	return e.apply(raw)
}

func (e *Entity[P]) unsupported(op string) error {
	return fmt.Errorf("%w: %s on %s", ErrUnsupported, op, e.kind.Type)
}

func (e *Entity[P]) invalid(op, reason string) error {
	return fmt.Errorf("%w: cannot %s %s %s: %s", ErrInvalidTransition, op, e.kind.Type, e.ID(), reason)
}

func versionHeader(v int) map[string]string {
	return map[string]string{persistence.VersionHeader: strconv.Itoa(v)}
}
