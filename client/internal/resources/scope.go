package resources

import (
	"fmt"
	"time"

	"github.com/cmsweb/cmaclient/client/internal/entity"
	"github.com/cmsweb/cmaclient/client/internal/persistence"
	"github.com/cmsweb/cmaclient/client/internal/request"
	"github.com/cmsweb/cmaclient/client/internal/value"
)

// PollConfig bounds how long ProcessForLocale waits for an asset.
type PollConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultPollConfig polls every 500ms for up to a minute.
var DefaultPollConfig = PollConfig{Interval: 500 * time.Millisecond, Timeout: time.Minute}

func (p PollConfig) withDefaults() PollConfig {
	if p.Interval <= 0 {
		p.Interval = DefaultPollConfig.Interval
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultPollConfig.Timeout
	}
	return p
}

// Scope is the resource root of a space or of one of its environments. All
// collections of a scope share its identity map.
type Scope struct {
	pc   *persistence.Context
	poll PollConfig

	// space is the space-level context; environments and API keys live
	// there even for environment scopes.
	space *persistence.Context
}

// NewScope returns a scope rooted at pc.
func NewScope(pc *persistence.Context, poll PollConfig) *Scope {
	return &Scope{pc: pc, poll: poll.withDefaults(), space: pc}
}

// PersistenceContext returns the scope's context.
func (s *Scope) PersistenceContext() *persistence.Context { return s.pc }

// Poll returns the asset processing poll settings.
func (s *Scope) Poll() PollConfig { return s.poll }

// InEnvironment returns the scope of environment id. It addresses
// environments/{id} under this scope and shares this scope's identity map.
func (s *Scope) InEnvironment(id string) *Scope {
	return &Scope{pc: s.pc.WithEndpoint(s.pc.Endpoint("environments", id)), poll: s.poll, space: s.space}
}

func scoped[P any](s *Scope, kind *entity.Kind[P], path string) *Collection[P] {
	c := NewCollection(kind, s.pc.WithEndpoint(s.pc.Endpoint(path)))
	c.dispatch = s.wrapRecord
	return c
}

// spaceScoped is scoped for space-level kinds: the collection is rooted at
// the space even when s is an environment scope.
func spaceScoped[P any](s *Scope, kind *entity.Kind[P], path string) *Collection[P] {
	c := NewCollection(kind, s.space.WithEndpoint(s.space.Endpoint(path)))
	c.dispatch = s.wrapRecord
	return c
}

// ContentTypes returns the content_types collection.
func (s *Scope) ContentTypes() *Collection[ContentTypeData] {
	return scoped(s, ContentTypeKind, "content_types")
}

// Entries returns the entries collection.
func (s *Scope) Entries() *Collection[*value.Object] { return scoped(s, EntryKind, "entries") }

// Assets returns the assets collection.
func (s *Scope) Assets() *Collection[AssetData] { return scoped(s, AssetKind, "assets") }

// Locales returns the locales collection.
func (s *Scope) Locales() *Collection[LocaleData] { return scoped(s, LocaleKind, "locales") }

// NewEntry returns an unsaved entry of content type ctID with fields.
func (s *Scope) NewEntry(ctID string, fields *value.Object) *Entry {
	doc := value.NewObject()
	if fields == nil {
		fields = value.NewObject()
	}
	doc.Set("fields", fields)
	return entity.New(EntryKind, s.Entries().Context(), &entity.Record[*value.Object]{
		Sys:  entity.Sys{ContentType: entity.NewLink(TypeContentType, ctID)},
		Data: doc,
	})
}

// WrapRecord wraps a raw record as the entity of its sys.type and stores
// it. Records of unknown types are returned unchanged.
func (s *Scope) WrapRecord(obj *value.Object) (any, error) {
	return s.wrapRecord(nil, obj)
}

func (s *Scope) wrapRecord(st *staging, obj *value.Object) (any, error) {
	switch typ := obj.Str("sys", "type"); typ {
	case TypeEntry:
		return wrapInto(s.Entries(), st, obj)
	case TypeAsset:
		return wrapInto(s.Assets(), st, obj)
	case TypeContentType:
		return wrapInto(s.ContentTypes(), st, obj)
	case TypeLocale:
		return wrapInto(s.Locales(), st, obj)
	case TypeEnvironment:
		return wrapInto(spaceScoped(s, EnvironmentKind, "environments"), st, obj)
	case TypeAPIKey:
		return wrapInto(spaceScoped(s, APIKeyKind, "api_keys"), st, obj)
	case "":
		return nil, fmt.Errorf("resources: record without sys.type")
	default:
		return obj, nil
	}
}

// Space is a space entity together with the scope of its resources.
type Space struct {
	*entity.Entity[SpaceData]
	*Scope
}

// NewSpace pairs a stored space entity with its resource scope.
func NewSpace(e *entity.Entity[SpaceData], poll PollConfig) *Space {
	return &Space{Entity: e, Scope: NewScope(e.ChildContext(), poll)}
}

// Environments returns the environments collection.
func (s *Space) Environments() *Collection[EnvironmentData] {
	return spaceScoped(s.Scope, EnvironmentKind, "environments")
}

// APIKeys returns the delivery API keys collection.
func (s *Space) APIKeys() *Collection[APIKeyData] {
	return spaceScoped(s.Scope, APIKeyKind, "api_keys")
}

// Spaces is the root collection of spaces.
type Spaces struct {
	*Collection[SpaceData]
	poll PollConfig
}

// NewSpaces returns the spaces collection under req.
func NewSpaces(req request.Request, poll PollConfig) *Spaces {
	return &Spaces{
		Collection: NewCollection(SpaceKind, persistence.New(req.Path("spaces"))),
		poll:       poll.withDefaults(),
	}
}

// Space wraps a stored space entity with its scope.
func (s *Spaces) Space(e *entity.Entity[SpaceData]) *Space { return NewSpace(e, s.poll) }
