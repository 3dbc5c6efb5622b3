package entity

import (
	"context"
)

// Capability flags the optional state transitions a kind supports.
type Capability uint8

const (
	// Publishable kinds accept publish/unpublish.
	Publishable Capability = 1 << iota
	// Archivable kinds accept archive/unarchive.
	Archivable
)

// Kind describes one resource type and its specialisation hooks. Every hook
// is optional.
type Kind[P any] struct {
	// Type is the sys.type of records of this kind.
	Type  string
	Codec Codec[P]
	Caps  Capability

	// Serialize returns the payload sent on save. Defaults to the full record.
	Serialize func(rec *Record[P]) (any, error)
	// Identity overrides the identity-map key.
	Identity func(e *Entity[P]) (string, bool)
	// Name returns a display name for the payload.
	Name func(p P) string
	// CreateHeaders adds headers to the POST that creates a record.
	CreateHeaders func(rec *Record[P]) map[string]string
}

// Has reports whether k supports c.
func (k *Kind[P]) Has(c Capability) bool { return k.Caps&c == c }

// PublishedSnapshotIdentity keys the published snapshot of a record apart
// from its draft: "{type}.published.{id}".
func PublishedSnapshotIdentity[P any](e *Entity[P]) (string, bool) {
	id, typ := e.ID(), e.Type()
	if id == "" || typ == "" {
		return "", false
	}
	if e.IsPublishedSnapshot() {
		return typ + ".published." + id, true
	}
	return typ + "." + id, true
}

// Versioned is implemented by every entity.
type Versioned interface {
	Identity() (string, bool)
	Version() int
	IsNew() bool
}

// Deletable entities can be soft-deleted.
type Deletable interface {
	Versioned
	IsDeleted() bool
	CanDelete() bool
	Delete(ctx context.Context) error
}

// PublishableEntity moves between draft and published.
type PublishableEntity interface {
	Versioned
	IsPublished() bool
	HasUnpublishedChanges() bool
	CanPublish() bool
	CanUnpublish() bool
	Publish(ctx context.Context) error
	Unpublish(ctx context.Context) error
}

// ArchivableEntity can be archived and restored.
type ArchivableEntity interface {
	Versioned
	IsArchived() bool
	CanArchive() bool
	CanUnarchive() bool
	Archive(ctx context.Context) error
	Unarchive(ctx context.Context) error
}
