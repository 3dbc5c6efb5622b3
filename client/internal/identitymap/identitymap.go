// Package identitymap deduplicates entities by identity so that repeated
// fetches of one server record yield one live object.
package identitymap

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Storable is anything the map can manage.
type Storable interface {
	// Identity returns the dedup key. ok is false for unsaved entities,
	// which are never managed.
	Identity() (identity string, ok bool)
	// Version returns the version used for the merge decision.
	Version() int
	// Absorb replaces the receiver's data with src's data in place. It
	// reports false when src is not of a compatible kind.
	Absorb(src Storable) bool
}

// IdentityMap maps identity strings to the single live instance for them.
// The zero value is not usable; call New.
type IdentityMap struct {
	mu      sync.Mutex
	entries map[string]Storable
}

// New returns an empty map.
func New() *IdentityMap {
	return &IdentityMap{entries: make(map[string]Storable)}
}

// Store registers e and returns the canonical instance for its identity.
//
// If no instance exists yet, e becomes canonical. Otherwise the existing
// instance is returned; it absorbs e's data only when its own version is not
// newer than e's, so a stale response never overwrites newer state.
func (m *IdentityMap) Store(e Storable) Storable {
	identity, ok := e.Identity()
	if !ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, found := m.entries[identity]
	if !found {
		m.entries[identity] = e
		storeTotal.WithLabelValues("insert").Inc()
		return e
	}
	if existing == e {
		storeTotal.WithLabelValues("self").Inc()
		return existing
	}

	if existing.Version() <= e.Version() {
		if !existing.Absorb(e) {
			log.Warn().Str("identity", identity).Msg("identitymap: incompatible instance for identity, keeping existing")
			storeTotal.WithLabelValues("incompatible").Inc()
			return existing
		}
		storeTotal.WithLabelValues("merge").Inc()
		return existing
	}

	log.Debug().
		Str("identity", identity).
		Int("existing_version", existing.Version()).
		Int("incoming_version", e.Version()).
		Msg("identitymap: discarding stale data")
	storeTotal.WithLabelValues("stale").Inc()
	return existing
}

// LoadOrStore returns the canonical instance for e's identity and true when
// one already exists. Otherwise e becomes canonical. Unlike Store it never
// merges data.
func (m *IdentityMap) LoadOrStore(e Storable) (Storable, bool) {
	identity, ok := e.Identity()
	if !ok {
		return e, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, found := m.entries[identity]; found {
		return existing, true
	}
	m.entries[identity] = e
	storeTotal.WithLabelValues("reserve").Inc()
	return e, false
}

// Get returns the canonical instance for identity.
func (m *IdentityMap) Get(identity string) (Storable, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[identity]
	return e, ok
}

// Len returns the number of managed identities.
func (m *IdentityMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// StoreAs is Store for callers that know the concrete type. When the
// canonical instance is of a different type, e is returned unchanged.
func StoreAs[E Storable](m *IdentityMap, e E) E {
	if canonical, ok := m.Store(e).(E); ok {
		return canonical
	}
	return e
}
