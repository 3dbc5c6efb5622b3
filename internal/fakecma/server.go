// Package fakecma is an in-memory content management API. It implements the
// subset of endpoints the client uses, with server-side versioning, so the
// client, its resources and the CLI can be tested end to end over HTTP.
package fakecma

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	versionHeader      = "X-Contentful-Version"
	contentTypeHeader  = "X-Contentful-Content-Type"
	organizationHeader = "X-Contentful-Organization"
	masterEnv          = "master"
)

// Call is one request the server received.
type Call struct {
	Method string
	Path   string
	Query  string
	Header http.Header
}

// Server is the fake API. It is safe for concurrent use.
type Server struct {
	token  string
	router *mux.Router

	mu         sync.Mutex
	now        func() time.Time
	spaces     map[string]*record
	scopes     map[scopeKey]map[string]bucket
	processing map[string]int
	calls      []Call

	processingReads int
	emptyRegenerate bool
}

// New returns a server that accepts token as bearer token. An empty token
// disables authentication.
func New(token string) *Server {
	s := &Server{
		token:           token,
		now:             time.Now,
		spaces:          make(map[string]*record),
		scopes:          make(map[scopeKey]map[string]bucket),
		processing:      make(map[string]int),
		processingReads: 1,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/spaces", s.listSpaces).Methods(http.MethodGet)
	r.HandleFunc("/spaces", s.createSpace).Methods(http.MethodPost)
	r.HandleFunc("/spaces/{space}", s.getSpace).Methods(http.MethodGet)

	const envColl = "{coll:content_types|entries|assets|locales}"
	const spaceColl = "{coll:content_types|entries|assets|locales|environments|api_keys}"
	for _, base := range []string{"/spaces/{space}/environments/{env}/" + envColl, "/spaces/{space}/" + spaceColl} {
		r.HandleFunc(base, s.list).Methods(http.MethodGet)
		r.HandleFunc(base, s.create).Methods(http.MethodPost)
		r.HandleFunc(base+"/{id}", s.get).Methods(http.MethodGet)
		r.HandleFunc(base+"/{id}", s.put).Methods(http.MethodPut)
		r.HandleFunc(base+"/{id}", s.remove).Methods(http.MethodDelete)
		r.HandleFunc(base+"/{id}/published", s.getPublished).Methods(http.MethodGet)
		r.HandleFunc(base+"/{id}/published", s.publish).Methods(http.MethodPut)
		r.HandleFunc(base+"/{id}/published", s.unpublish).Methods(http.MethodDelete)
		r.HandleFunc(base+"/{id}/archived", s.archive).Methods(http.MethodPut)
		r.HandleFunc(base+"/{id}/archived", s.unarchive).Methods(http.MethodDelete)
		r.HandleFunc(base+"/{id}/files/{locale}/process", s.process).Methods(http.MethodPut)
		r.HandleFunc(base+"/{id}/regenerate", s.regenerate).Methods(http.MethodPut)
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone()})
	s.mu.Unlock()

	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		writeError(w, r, http.StatusUnauthorized, "AccessTokenInvalid", "The access token you sent could not be found or is invalid.")
		return
	}
	s.router.ServeHTTP(w, r)
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// SetClock replaces the time source.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetProcessingReads sets how many reads of an asset pass before a started
// file processing completes. The default is 1.
func (s *Server) SetProcessingReads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processingReads = n
}

// SetEmptyRegenerate makes access token regeneration answer 204.
func (s *Server) SetEmptyRegenerate(empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emptyRegenerate = empty
}

// AddSpace creates a space with an en-US default locale.
func (s *Server) AddSpace(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addSpaceLocked(id, name)
}

func (s *Server) addSpaceLocked(id, name string) *record {
	now := s.now()
	sp := &record{typ: "Space", id: id, version: 1, createdAt: now, updatedAt: now, body: map[string]any{"name": name}}
	s.spaces[id] = sp
	s.newRecord(scopeKey{id, masterEnv}, "locales", "en-us", map[string]any{
		"name": "English (United States)", "code": "en-US", "default": true, "internal_code": "en-US",
		"fallbackCode": nil, "contentDeliveryApi": true, "contentManagementApi": true, "optional": false,
	})
	return sp
}

// Seed stores a raw record document in a collection of space's environment
// env. The document must carry sys.id; sys.version defaults to 1.
func (s *Server) Seed(space, env, coll, doc string) error {
	var m map[string]any
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return fmt.Errorf("fakecma: seed: %w", err)
	}
	sys, _ := m["sys"].(map[string]any)
	id, _ := sys["id"].(string)
	if id == "" {
		return fmt.Errorf("fakecma: seed: missing sys.id")
	}
	delete(m, "sys")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.spaces[space]; !ok {
		s.addSpaceLocked(space, space)
	}
	if env == "" {
		env = masterEnv
	}
	rec := s.newRecord(scopeKey{space, env}, coll, id, m)
	if v, ok := sys["version"].(float64); ok {
		rec.version = int(v)
	}
	if v, ok := sys["publishedVersion"].(float64); ok {
		pv := int(v)
		rec.published = &pv
		rec.snapshot = rec.doc()
	}
	if v, ok := sys["archivedVersion"].(float64); ok {
		av := int(v)
		rec.archived = &av
	}
	if ct, ok := sys["contentType"].(map[string]any); ok {
		rec.links["contentType"] = ct
	}
	return nil
}

// Version returns the stored version of a record, or 0.
func (s *Server) Version(space, env, coll, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if env == "" {
		env = masterEnv
	}
	if rec := s.scopes[scopeKey{space, env}][coll][id]; rec != nil {
		return rec.version
	}
	return 0
}

func (s *Server) bucket(k scopeKey, coll string) bucket {
	colls, ok := s.scopes[k]
	if !ok {
		colls = make(map[string]bucket)
		s.scopes[k] = colls
	}
	b, ok := colls[coll]
	if !ok {
		b = make(bucket)
		colls[coll] = b
	}
	return b
}

func (s *Server) newRecord(k scopeKey, coll, id string, body map[string]any) *record {
	now := s.now()
	rec := &record{
		typ:       collectionType(coll),
		id:        id,
		version:   1,
		createdAt: now,
		updatedAt: now,
		links:     map[string]map[string]any{"space": linkTo("Space", k.space)},
		body:      body,
	}
	if coll != "environments" && coll != "api_keys" {
		rec.links["environment"] = linkTo("Environment", k.env)
	}
	s.bucket(k, coll)[id] = rec
	return rec
}

// --- request helpers ---

type target struct {
	key  scopeKey
	coll string
	id   string
}

// resolve reads the route and checks that the space and environment exist.
// It must be called with s.mu held.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (target, bool) {
	v := mux.Vars(r)
	t := target{key: scopeKey{space: v["space"], env: v["env"]}, coll: v["coll"], id: v["id"]}
	if _, ok := s.spaces[t.key.space]; !ok {
		writeError(w, r, http.StatusNotFound, "NotFound", "The resource could not be found.")
		return t, false
	}
	if t.key.env == "" {
		t.key.env = masterEnv
	} else if t.key.env != masterEnv {
		if _, ok := s.bucket(scopeKey{t.key.space, masterEnv}, "environments")[t.key.env]; !ok {
			writeError(w, r, http.StatusNotFound, "NotFound", "The resource could not be found.")
			return t, false
		}
	}
	if t.coll == "environments" || t.coll == "api_keys" {
		t.key.env = masterEnv
	}
	return t, true
}

// existing resolves the route to a stored record.
func (s *Server) existing(w http.ResponseWriter, r *http.Request) (target, *record, bool) {
	t, ok := s.resolve(w, r)
	if !ok {
		return t, nil, false
	}
	rec := s.bucket(t.key, t.coll)[t.id]
	if rec == nil {
		writeError(w, r, http.StatusNotFound, "NotFound", "The resource could not be found.")
		return t, nil, false
	}
	return t, rec, true
}

// checkVersion enforces optimistic concurrency on a mutation.
func checkVersion(w http.ResponseWriter, r *http.Request, rec *record) bool {
	got := r.Header.Get(versionHeader)
	if got == strconv.Itoa(rec.version) {
		return true
	}
	writeError(w, r, http.StatusConflict, "VersionMismatch",
		fmt.Sprintf("Version mismatch: sent %q, current version is %d", got, rec.version))
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "BadRequest", "Invalid JSON: "+err.Error())
		return nil, false
	}
	if body == nil {
		body = map[string]any{}
	}
	delete(body, "sys")
	return body, true
}

// validate rejects server-managed keys the client must never send.
func validate(w http.ResponseWriter, r *http.Request, coll string, body map[string]any) bool {
	forbidden := map[string][]string{
		"locales":  {"default", "internal_code"},
		"api_keys": {"accessToken"},
	}
	for _, k := range forbidden[coll] {
		if _, ok := body[k]; ok {
			writeError(w, r, http.StatusUnprocessableEntity, "ValidationFailed", fmt.Sprintf("%s is read-only", k))
			return false
		}
	}
	return true
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:22]
}

// seedEntry is one element of a seed file.
type seedEntry struct {
	Space       string          `json:"space"`
	Environment string          `json:"environment"`
	Collection  string          `json:"collection"`
	Record      json.RawMessage `json:"record"`
}

// SeedFile loads a JSON array of {space, environment, collection, record}
// objects, each record as accepted by Seed.
func (s *Server) SeedFile(raw []byte) error {
	var entries []seedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("fakecma: seed file: %w", err)
	}
	for i, e := range entries {
		if e.Space == "" || e.Collection == "" {
			return fmt.Errorf("fakecma: seed file: entry %d needs space and collection", i)
		}
		if err := s.Seed(e.Space, e.Environment, e.Collection, string(e.Record)); err != nil {
			return fmt.Errorf("fakecma: seed file: entry %d: %w", i, err)
		}
	}
	return nil
}
