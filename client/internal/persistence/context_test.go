package persistence

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/cmsweb/cmaclient/client/internal/identitymap"
	"github.com/cmsweb/cmaclient/client/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stub struct {
	id      string
	version int
}

func (s *stub) Identity() (string, bool) { return "Stub." + s.id, s.id != "" }
func (s *stub) Version() int { return s.version }
func (s *stub) Absorb(identitymap.Storable) bool { return true }

func fake(id string, version int) *stub { return &stub{id: id, version: version} }

func newReq() (request.Request, *[]request.Options) {
	var calls []request.Options
	adapter := request.AdapterFunc(func(_ context.Context, o request.Options) (json.RawMessage, error) {
		calls = append(calls, o)
		return nil, nil
	})
	return request.New(adapter).Path("spaces"), &calls
}

func TestEndpoint_ScopesPath(t *testing.T) {
	t.Parallel()
	req, _ := newReq()
	pc := New(req)
	assert.Equal(t, "spaces/s1/entries", pc.Endpoint("s1", "entries").PathString())
	assert.Equal(t, "spaces", pc.Endpoint().PathString())
}

func TestIdentityMap_LazyAndStable(t *testing.T) {
	t.Parallel()
	req, _ := newReq()
	pc := New(req)
	m := pc.IdentityMap()
	require.NotNil(t, m)
	assert.Same(t, m, pc.IdentityMap())
}

func TestWithEndpoint_SharesIdentityMap(t *testing.T) {
	t.Parallel()
	req, _ := newReq()
	pc := New(req)
	env := pc.WithEndpoint(req.Path("s1", "environments", "staging"))
	assert.Same(t, pc.IdentityMap(), env.IdentityMap())
	assert.Equal(t, "spaces/s1/environments/staging/entries", env.Endpoint("entries").PathString())
}

func TestChild_IsolatedAndStripsVersionHeader(t *testing.T) {
	t.Parallel()
	req, calls := newReq()
	parent := New(req.PutHeaders(map[string]string{VersionHeader: "7"}).Headers(map[string]string{"A": "b"}))
	child := parent.Child("s1", "entries")

	assert.NotSame(t, parent.IdentityMap(), child.IdentityMap())

	_, err := child.Endpoint("e1").Put(context.Background())
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "spaces/s1/entries/e1", got.Path)
	assert.NotContains(t, got.Headers, VersionHeader)
	assert.Equal(t, "b", got.Headers["A"])
}

func TestStore_IsolatedPerContext(t *testing.T) {
	t.Parallel()
	req, _ := newReq()
	a := New(req).Child("s1")
	b := New(req).Child("s2")

	ea := fake("1", 1)
	eb := fake("1", 1)
	assert.Same(t, ea, Store(a, ea))
	assert.Same(t, eb, Store(b, eb), "same identity in another space must not collide")
	assert.Equal(t, 1, a.IdentityMap().Len())
	assert.Equal(t, 1, b.IdentityMap().Len())
}

func TestReserve_ReturnsExistingUntouched(t *testing.T) {
	req, _ := newReq()
	c := New(req)
	first := fake("1", 1)
	assert.Same(t, first, Reserve(c, first))
	assert.Same(t, first, Reserve(c, fake("1", 9)))
	assert.Equal(t, 1, first.version)
	assert.Equal(t, 1, c.IdentityMap().Len())
}
