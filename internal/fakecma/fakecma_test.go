package fakecma

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t   *testing.T
	srv *Server
	ts  *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := New("tok")
	srv.AddSpace("s1", "Test space")
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &harness{t: t, srv: srv, ts: ts}
}

func (h *harness) do(method, path string, body any, headers map[string]string) (int, map[string]any) {
	h.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.ts.URL+path, rd)
	require.NoError(h.t, err)
	req.Header.Set("Authorization", "Bearer tok")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	var doc map[string]any
	if len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, &doc))
	}
	return resp.StatusCode, doc
}

func sysOf(doc map[string]any) map[string]any {
	s, _ := doc["sys"].(map[string]any)
	return s
}

func version(v int) map[string]string {
	return map[string]string{versionHeader: strconv.Itoa(v)}
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	req, _ := http.NewRequest(http.MethodGet, h.ts.URL+"/spaces/s1", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	status, doc := h.do(http.MethodGet, "/spaces/s1", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Test space", doc["name"])
}

func TestEntryLifecycle(t *testing.T) {
	h := newHarness(t)
	base := "/spaces/s1/environments/master/entries"

	status, doc := h.do(http.MethodPost, base, map[string]any{"fields": map[string]any{}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "ValidationFailed", sysOf(doc)["id"])

	status, doc = h.do(http.MethodPost, base, map[string]any{"fields": map[string]any{"title": map[string]any{"en-US": "Hi"}}},
		map[string]string{contentTypeHeader: "post"})
	require.Equal(t, http.StatusCreated, status)
	id := sysOf(doc)["id"].(string)
	assert.EqualValues(t, 1, sysOf(doc)["version"])
	ct := sysOf(doc)["contentType"].(map[string]any)["sys"].(map[string]any)
	assert.Equal(t, "post", ct["id"])

	status, doc = h.do(http.MethodPut, base+"/"+id, map[string]any{"fields": map[string]any{}}, version(7))
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "VersionMismatch", sysOf(doc)["id"])

	status, doc = h.do(http.MethodPut, base+"/"+id, map[string]any{"fields": map[string]any{}}, version(1))
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, sysOf(doc)["version"])

	status, doc = h.do(http.MethodPut, base+"/"+id+"/published", nil, version(2))
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, sysOf(doc)["version"])
	assert.EqualValues(t, 3, sysOf(doc)["publishedVersion"])

	status, _ = h.do(http.MethodPut, base+"/"+id+"/archived", nil, version(3))
	assert.Equal(t, http.StatusBadRequest, status, "published entries cannot be archived")

	status, doc = h.do(http.MethodDelete, base+"/"+id+"/published", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, sysOf(doc), "publishedVersion")
	assert.EqualValues(t, 4, sysOf(doc)["version"])

	status, doc = h.do(http.MethodPut, base+"/"+id+"/archived", nil, version(4))
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 5, sysOf(doc)["archivedVersion"])

	status, _ = h.do(http.MethodPut, base+"/"+id+"/published", nil, version(5))
	assert.Equal(t, http.StatusBadRequest, status)

	status, doc = h.do(http.MethodDelete, base+"/"+id+"/archived", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, sysOf(doc), "archivedVersion")

	status, _ = h.do(http.MethodDelete, base+"/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = h.do(http.MethodGet, base+"/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListWithIncludes(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.srv.Seed("s1", "", "assets", `{"sys":{"id":"img"},"fields":{"title":{"en-US":"Image"}}}`))
	require.NoError(t, h.srv.Seed("s1", "", "entries", `{"sys":{"id":"a","contentType":{"sys":{"type":"Link","linkType":"ContentType","id":"post"}}},
		"fields":{"next":{"en-US":{"sys":{"type":"Link","linkType":"Entry","id":"b"}}},"image":{"en-US":{"sys":{"type":"Link","linkType":"Asset","id":"img"}}}}}`))
	require.NoError(t, h.srv.Seed("s1", "", "entries", `{"sys":{"id":"b","contentType":{"sys":{"type":"Link","linkType":"ContentType","id":"author"}}},
		"fields":{"back":{"en-US":{"sys":{"type":"Link","linkType":"Entry","id":"a"}}}}}`))

	status, doc := h.do(http.MethodGet, "/spaces/s1/environments/master/entries?content_type=post", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, doc["total"])
	items := doc["items"].([]any)
	require.Len(t, items, 1)
	inc := doc["includes"].(map[string]any)
	assert.Len(t, inc["Entry"], 1)
	assert.Len(t, inc["Asset"], 1)

	status, doc = h.do(http.MethodGet, "/spaces/s1/environments/master/entries?include=0&limit=1&skip=1", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, doc["total"])
	assert.Len(t, doc["items"], 1)
	assert.NotContains(t, doc, "includes")
}

func TestAssetProcessing(t *testing.T) {
	h := newHarness(t)
	h.srv.SetProcessingReads(1)
	require.NoError(t, h.srv.Seed("s1", "", "assets", `{"sys":{"id":"img","version":3},
		"fields":{"file":{"en-US":{"fileName":"cat.png","contentType":"image/png","upload":"https://upload.example.com/cat.png"}}}}`))
	path := "/spaces/s1/environments/master/assets/img"

	status, _ := h.do(http.MethodPut, path+"/files/de-DE/process", nil, version(3))
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = h.do(http.MethodPut, path+"/files/en-US/process", nil, version(3))
	require.Equal(t, http.StatusNoContent, status)

	_, doc := h.do(http.MethodGet, path, nil, nil)
	file := doc["fields"].(map[string]any)["file"].(map[string]any)["en-US"].(map[string]any)
	assert.NotContains(t, file, "url")

	_, doc = h.do(http.MethodGet, path, nil, nil)
	file = doc["fields"].(map[string]any)["file"].(map[string]any)["en-US"].(map[string]any)
	assert.Equal(t, "//assets.example.com/img/en-US/cat.png", file["url"])
	assert.EqualValues(t, 4, sysOf(doc)["version"])
}

func TestReadOnlyKeysAreRejected(t *testing.T) {
	h := newHarness(t)
	status, _ := h.do(http.MethodPost, "/spaces/s1/environments/master/locales",
		map[string]any{"code": "de-DE", "name": "German", "internal_code": "de-DE"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, doc := h.do(http.MethodPost, "/spaces/s1/environments/master/locales",
		map[string]any{"code": "de-DE", "name": "German"}, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, false, doc["default"])
	assert.Equal(t, "de-DE", doc["internal_code"])

	status, _ = h.do(http.MethodPost, "/spaces/s1/api_keys", map[string]any{"name": "k", "accessToken": "x"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestRegenerate(t *testing.T) {
	h := newHarness(t)
	status, doc := h.do(http.MethodPost, "/spaces/s1/api_keys", map[string]any{"name": "k"}, nil)
	require.Equal(t, http.StatusCreated, status)
	id := sysOf(doc)["id"].(string)
	before := doc["accessToken"]

	status, doc = h.do(http.MethodPut, "/spaces/s1/api_keys/"+id+"/regenerate", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, before, doc["accessToken"])

	h.srv.SetEmptyRegenerate(true)
	status, doc = h.do(http.MethodPut, "/spaces/s1/api_keys/"+id+"/regenerate", nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Nil(t, doc)
}

func TestEnvironments(t *testing.T) {
	h := newHarness(t)
	status, _ := h.do(http.MethodGet, "/spaces/s1/environments/staging/entries", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, doc := h.do(http.MethodPut, "/spaces/s1/environments/staging", map[string]any{"name": "Staging"}, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Environment", sysOf(doc)["type"])

	status, doc = h.do(http.MethodGet, "/spaces/s1/environments/staging/entries", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, doc["total"])
}

func TestSeedFile(t *testing.T) {
	h := newHarness(t)
	err := h.srv.SeedFile([]byte(`[
		{"space":"s2","collection":"entries","record":{"sys":{"id":"e1","version":2,"publishedVersion":2},"fields":{}}},
		{"space":"s1","environment":"master","collection":"assets","record":{"sys":{"id":"a1"},"fields":{}}}
	]`))
	require.NoError(t, err)

	status, doc := h.do(http.MethodGet, "/spaces/s2/environments/master/entries/e1", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, sysOf(doc)["publishedVersion"])
	assert.Equal(t, 1, h.srv.Version("s1", "", "assets", "a1"))

	assert.Error(t, h.srv.SeedFile([]byte(`[{"collection":"entries","record":{"sys":{"id":"x"}}}]`)))
	assert.Error(t, h.srv.SeedFile([]byte(`{}`)))
}
