package entity

import "fmt"

// State names where an entity sits in its lifecycle.
type State string

const (
	StateNew       State = "new"
	StateDraft     State = "draft"
	StateUpdated   State = "updated"
	StatePublished State = "published"
	StateArchived  State = "archived"
	StateDeleted   State = "deleted"
)

// state is a consistent snapshot of the fields the predicates read.
type state struct {
	sys       Sys
	deletedAt *int
}

func (e *Entity[P]) state() state {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return state{sys: e.data.Sys, deletedAt: e.deletedAtVersion}
}

func (s state) version() int {
	if s.deletedAt != nil {
		return *s.deletedAt
	}
	if s.sys.Version != nil {
		return *s.sys.Version
	}
	return 0
}

func (s state) isDeleted() bool   { return s.deletedAt != nil }
func (s state) isPublished() bool { return s.sys.PublishedVersion != nil }
func (s state) isArchived() bool  { return s.sys.ArchivedVersion != nil }

func (s state) hasUnpublishedChanges() bool {
	return s.sys.PublishedVersion == nil || *s.sys.PublishedVersion < s.version()
}

func (s state) canPublish() bool {
	return !s.isDeleted() && !s.isArchived() && s.hasUnpublishedChanges()
}

func (s state) canArchive() bool {
	return !s.isArchived() && !s.isPublished()
}

func (s state) current() State {
	switch {
	case s.isDeleted():
		return StateDeleted
	case s.sys.ID == "":
		return StateNew
	case s.isArchived():
		return StateArchived
	case s.hasUnpublishedChanges() && s.sys.PublishedVersion == nil:
		return StateDraft
	case s.hasUnpublishedChanges():
		return StateUpdated
	default:
		return StatePublished
	}
}

// State returns the lifecycle state.
func (e *Entity[P]) State() State { return e.state().current() }

// Version returns the version at deletion for soft-deleted entities, else
// sys.version, defaulting to 0.
func (e *Entity[P]) Version() int { return e.state().version() }

// PublishedVersion returns sys.publishedVersion.
func (e *Entity[P]) PublishedVersion() (int, bool) {
	if v := e.state().sys.PublishedVersion; v != nil {
		return *v, true
	}
	return 0, false
}

// ArchivedVersion returns sys.archivedVersion.
func (e *Entity[P]) ArchivedVersion() (int, bool) {
	if v := e.state().sys.ArchivedVersion; v != nil {
		return *v, true
	}
	return 0, false
}

// IsNew reports whether the entity has never been saved.
func (e *Entity[P]) IsNew() bool { return e.state().sys.ID == "" }

// IsDeleted reports whether the entity was soft-deleted.
func (e *Entity[P]) IsDeleted() bool { return e.state().isDeleted() }

// IsPublished reports whether a published version exists.
func (e *Entity[P]) IsPublished() bool { return e.state().isPublished() }

// IsArchived reports whether the entity is archived.
func (e *Entity[P]) IsArchived() bool { return e.state().isArchived() }

// HasUnpublishedChanges reports whether the draft is ahead of the published
// version, or nothing was published yet.
func (e *Entity[P]) HasUnpublishedChanges() bool { return e.state().hasUnpublishedChanges() }

// CanPublish reports whether Publish is allowed.
func (e *Entity[P]) CanPublish() bool {
	return e.kind.Has(Publishable) && e.state().canPublish()
}

// CanUnpublish reports whether Unpublish is allowed.
func (e *Entity[P]) CanUnpublish() bool {
	return e.kind.Has(Publishable) && e.state().isPublished()
}

// CanArchive reports whether Archive is allowed.
func (e *Entity[P]) CanArchive() bool {
	return e.kind.Has(Archivable) && e.state().canArchive()
}

// CanUnarchive reports whether Unarchive is allowed.
func (e *Entity[P]) CanUnarchive() bool {
	return e.kind.Has(Archivable) && e.state().isArchived()
}

// CanDelete reports whether Delete is allowed.
func (e *Entity[P]) CanDelete() bool { return !e.state().isDeleted() }

// MarkDeletedAtVersion soft-deletes the entity at version. Deletion is
// one-directional: a second call keeps the first version. A nil version is a
// programming error and panics.
func (e *Entity[P]) MarkDeletedAtVersion(version *int) {
	if version == nil {
		panic(fmt.Errorf("%w: cannot mark %s deleted without a numeric version", ErrInvalidTransition, e.kind.Type))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deletedAtVersion != nil {
		return
	}
	v := *version
	e.deletedAtVersion = &v
}
