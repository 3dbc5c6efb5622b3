package identitymap

import (
	"fmt"
	"sync"
	"testing"
)

type fakeEntity struct {
	id      string
	version int
	data    string
}

func (f *fakeEntity) Identity() (string, bool) {
	if f.id == "" {
		return "", false
	}
	return "Fake." + f.id, true
}

func (f *fakeEntity) Version() int { return f.version }

func (f *fakeEntity) Absorb(src Storable) bool {
	s, ok := src.(*fakeEntity)
	if !ok {
		return false
	}
	f.version, f.data = s.version, s.data
	return true
}

type otherEntity struct{ fakeEntity }

func (o *otherEntity) Absorb(Storable) bool { return false }

func TestStore_UnmanagedWithoutIdentity(t *testing.T) {
	t.Parallel()
	m := New()
	e := &fakeEntity{}
	if got := m.Store(e); got != e {
		t.Fatal("entity without identity must be returned unchanged")
	}
	if m.Len() != 0 {
		t.Fatalf("unmanaged entity stored: len=%d", m.Len())
	}
}

func TestStore_IdentityStability(t *testing.T) {
	t.Parallel()
	m := New()
	first := StoreAs(m, &fakeEntity{id: "1", version: 1, data: "a"})
	second := StoreAs(m, &fakeEntity{id: "1", version: 1, data: "b"})
	if first != second {
		t.Fatal("same identity must yield the same instance")
	}
	if first.data != "b" {
		t.Fatalf("equal version should merge, data=%q", first.data)
	}
}

func TestStore_VersionMonotonicMerge(t *testing.T) {
	t.Parallel()
	m := New()
	e := StoreAs(m, &fakeEntity{id: "1", version: 3, data: "v3"})

	got := StoreAs(m, &fakeEntity{id: "1", version: 1, data: "v1"})
	if got != e || e.data != "v3" || e.version != 3 {
		t.Fatalf("stale data overwrote newer state: %+v", e)
	}

	got = StoreAs(m, &fakeEntity{id: "1", version: 5, data: "v5"})
	if got != e {
		t.Fatal("newer data must be merged into the existing reference")
	}
	if e.data != "v5" || e.version != 5 {
		t.Fatalf("expected in-place update to v5, got %+v", e)
	}
}

func TestStore_SameInstanceTwice(t *testing.T) {
	t.Parallel()
	m := New()
	e := &fakeEntity{id: "1", version: 2}
	m.Store(e)
	if m.Store(e) != e {
		t.Fatal("re-storing canonical instance must return it")
	}
}

func TestStoreAs_IncompatibleKeepsExisting(t *testing.T) {
	t.Parallel()
	m := New()
	canonical := &otherEntity{fakeEntity{id: "1", version: 1}}
	m.Store(canonical)

	incoming := &fakeEntity{id: "1", version: 2, data: "x"}
	if got := StoreAs(m, incoming); got != incoming {
		t.Fatal("StoreAs must fall back to the incoming value on type mismatch")
	}
	if got, _ := m.Get("Fake.1"); got != canonical {
		t.Fatal("existing entry must be kept")
	}
}

func TestStore_ConcurrentSameIdentity(t *testing.T) {
	t.Parallel()
	m := New()
	var wg sync.WaitGroup
	results := make([]*fakeEntity, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = StoreAs(m, &fakeEntity{id: "x", version: i, data: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		if r != results[0] {
			t.Fatal("concurrent stores returned different instances")
		}
	}
	if results[0].version != 31 {
		t.Fatalf("highest version must win, got %d", results[0].version)
	}
}

func TestLoadOrStore_NeverMerges(t *testing.T) {
	t.Parallel()
	m := New()
	first := &fakeEntity{id: "1", version: 1, data: "old"}
	got, loaded := m.LoadOrStore(first)
	if loaded || got != first {
		t.Fatalf("first LoadOrStore = %v, %v; want the entity itself, false", got, loaded)
	}

	newer := &fakeEntity{id: "1", version: 5, data: "new"}
	got, loaded = m.LoadOrStore(newer)
	if !loaded || got != first {
		t.Fatalf("second LoadOrStore = %v, %v; want the first entity, true", got, loaded)
	}
	if first.data != "old" || first.version != 1 {
		t.Fatalf("canonical was modified: %+v", first)
	}

	anon := &fakeEntity{}
	if got, loaded := m.LoadOrStore(anon); loaded || got != anon || m.Len() != 1 {
		t.Fatalf("entity without identity must stay unmanaged")
	}
}
