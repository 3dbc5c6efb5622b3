package fakecma

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

func (s *Server) listSpaces(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := make(bucket, len(s.spaces))
	for id, sp := range s.spaces {
		b[id] = sp
	}
	items := make([]any, 0, len(b))
	for _, sp := range b.sorted() {
		items = append(items, sp.doc())
	}
	writeJSON(w, http.StatusOK, collection(items, len(items), 0, len(items), nil))
}

func (s *Server) createSpace(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name, _ := body["name"].(string)
	if name == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "ValidationFailed", "name is required")
		return
	}
	sp := s.addSpaceLocked(newID(), name)
	if org := r.Header.Get(organizationHeader); org != "" {
		sp.links = map[string]map[string]any{"organization": linkTo("Organization", org)}
	}
	writeJSON(w, http.StatusCreated, sp.doc())
}

func (s *Server) getSpace(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[mux.Vars(r)["space"]]
	if !ok {
		writeError(w, r, http.StatusNotFound, "NotFound", "The resource could not be found.")
		return
	}
	writeJSON(w, http.StatusOK, sp.doc())
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.resolve(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("skip"))
	limit := 100
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l >= 0 {
		limit = l
	}
	var ids map[string]bool
	if in := q.Get("sys.id[in]"); in != "" {
		ids = make(map[string]bool)
		for _, id := range strings.Split(in, ",") {
			ids[id] = true
		}
	}

	var matched []*record
	for _, rec := range s.bucket(t.key, t.coll).sorted() {
		if ct := q.Get("content_type"); ct != "" && contentTypeOf(rec) != ct {
			continue
		}
		if ids != nil && !ids[rec.id] {
			continue
		}
		matched = append(matched, rec)
	}
	total := len(matched)
	if skip > len(matched) {
		skip = len(matched)
	}
	matched = matched[skip:]
	if limit < len(matched) {
		matched = matched[:limit]
	}

	items := make([]any, 0, len(matched))
	for _, rec := range matched {
		items = append(items, rec.doc())
	}
	depth := 0
	if t.coll == "entries" {
		depth = 1
	}
	if d, err := strconv.Atoi(q.Get("include")); err == nil {
		depth = d
	}
	writeJSON(w, http.StatusOK, collection(items, total, skip, limit, s.includes(t.key, matched, depth)))
}

// includes gathers the entries and assets linked from recs, up to depth hops.
func (s *Server) includes(k scopeKey, recs []*record, depth int) map[string][]any {
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		seen[rec.typ+"."+rec.id] = true
	}
	out := map[string][]any{}
	frontier := recs
	for ; depth > 0 && len(frontier) > 0; depth-- {
		var next []*record
		for _, rec := range frontier {
			var links []map[string]any
			collectLinks(rec.body, &links)
			for _, l := range links {
				typ, _ := l["linkType"].(string)
				id, _ := l["id"].(string)
				coll := map[string]string{"Entry": "entries", "Asset": "assets"}[typ]
				if coll == "" || seen[typ+"."+id] {
					continue
				}
				target := s.bucket(k, coll)[id]
				if target == nil {
					continue
				}
				seen[typ+"."+id] = true
				out[typ] = append(out[typ], target.doc())
				next = append(next, target)
			}
		}
		frontier = next
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func collection(items []any, total, skip, limit int, includes map[string][]any) map[string]any {
	doc := map[string]any{
		"sys":   map[string]any{"type": "Array"},
		"total": total,
		"skip":  skip,
		"limit": limit,
		"items": items,
	}
	if includes != nil {
		doc["includes"] = includes
	}
	return doc
}

func contentTypeOf(rec *record) string {
	ct := rec.links["contentType"]
	if ct == nil {
		return ""
	}
	sys, _ := ct["sys"].(map[string]any)
	id, _ := sys["id"].(string)
	return id
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.resolve(w, r)
	if !ok {
		return
	}
	s.insert(w, r, t, newID(), body)
}

// insert validates and stores a new record and answers 201.
func (s *Server) insert(w http.ResponseWriter, r *http.Request, t target, id string, body map[string]any) {
	if !validate(w, r, t.coll, body) {
		return
	}
	ct := r.Header.Get(contentTypeHeader)
	if t.coll == "entries" && ct == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "ValidationFailed", "X-Contentful-Content-Type header is required")
		return
	}
	switch t.coll {
	case "locales":
		code, _ := body["code"].(string)
		body["default"] = false
		body["internal_code"] = code
	case "api_keys":
		body["accessToken"] = newID()
	}
	rec := s.newRecord(t.key, t.coll, id, body)
	if t.coll == "entries" {
		rec.links["contentType"] = linkTo("ContentType", ct)
	}
	writeJSON(w, http.StatusCreated, rec.doc())
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, rec, ok := s.existing(w, r)
	if !ok {
		return
	}
	if t.coll == "assets" {
		s.advanceProcessing(t, rec)
	}
	writeJSON(w, http.StatusOK, rec.doc())
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.resolve(w, r)
	if !ok {
		return
	}
	rec := s.bucket(t.key, t.coll)[t.id]
	if rec == nil {
		if r.Header.Get(versionHeader) != "" {
			writeError(w, r, http.StatusNotFound, "NotFound", "The resource could not be found.")
			return
		}
		s.insert(w, r, t, t.id, body)
		return
	}
	if !checkVersion(w, r, rec) || !validate(w, r, t.coll, body) {
		return
	}
	for _, k := range []string{"default", "internal_code", "accessToken"} {
		if v, ok := rec.body[k]; ok {
			body[k] = v
		}
	}
	rec.body = body
	rec.touch(s.now())
	writeJSON(w, http.StatusOK, rec.doc())
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, rec, ok := s.existing(w, r)
	if !ok {
		return
	}
	if rec.published != nil {
		writeError(w, r, http.StatusBadRequest, "BadRequest", "Cannot delete published "+rec.typ)
		return
	}
	delete(s.bucket(t.key, t.coll), rec.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPublished(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec, ok := s.existing(w, r)
	if !ok {
		return
	}
	if rec.snapshot == nil {
		writeError(w, r, http.StatusNotFound, "NotFound", "The resource could not be found.")
		return
	}
	writeJSON(w, http.StatusOK, rec.snapshot)
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec, ok := s.existing(w, r)
	if !ok || !checkVersion(w, r, rec) {
		return
	}
	if rec.archived != nil {
		writeError(w, r, http.StatusBadRequest, "BadRequest", "Cannot publish archived "+rec.typ)
		return
	}
	rec.touch(s.now())
	v := rec.version
	rec.published = &v
	rec.snapshot = rec.doc()
	writeJSON(w, http.StatusOK, rec.doc())
}

func (s *Server) unpublish(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec, ok := s.existing(w, r)
	if !ok {
		return
	}
	if rec.published == nil {
		writeError(w, r, http.StatusBadRequest, "BadRequest", rec.typ+" is not published")
		return
	}
	rec.published, rec.snapshot = nil, nil
	rec.touch(s.now())
	writeJSON(w, http.StatusOK, rec.doc())
}

func (s *Server) archive(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec, ok := s.existing(w, r)
	if !ok || !checkVersion(w, r, rec) {
		return
	}
	if rec.published != nil || rec.archived != nil {
		writeError(w, r, http.StatusBadRequest, "BadRequest", "Cannot archive published or archived "+rec.typ)
		return
	}
	rec.touch(s.now())
	v := rec.version
	rec.archived = &v
	writeJSON(w, http.StatusOK, rec.doc())
}

func (s *Server) unarchive(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec, ok := s.existing(w, r)
	if !ok {
		return
	}
	if rec.archived == nil {
		writeError(w, r, http.StatusBadRequest, "BadRequest", rec.typ+" is not archived")
		return
	}
	rec.archived = nil
	rec.touch(s.now())
	writeJSON(w, http.StatusOK, rec.doc())
}

// process starts file processing for one locale. The file gets its url after
// the configured number of further reads of the asset.
func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, rec, ok := s.existing(w, r)
	if !ok || !checkVersion(w, r, rec) {
		return
	}
	locale := mux.Vars(r)["locale"]
	file := localizedFile(rec, locale)
	if file == nil || file["upload"] == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "ValidationFailed", "no upload for locale "+locale)
		return
	}
	s.processing[processingKey(t, locale)] = s.processingReads
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) advanceProcessing(t target, rec *record) {
	prefix := processingKey(t, "")
	changed := false
	for key, left := range s.processing {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if left > 0 {
			s.processing[key] = left - 1
			continue
		}
		locale := strings.TrimPrefix(key, prefix)
		if file := localizedFile(rec, locale); file != nil {
			upload, _ := file["upload"].(string)
			file["url"] = "//assets.example.com/" + rec.id + "/" + locale + "/" + upload[strings.LastIndex(upload, "/")+1:]
			delete(file, "upload")
			changed = true
		}
		delete(s.processing, key)
	}
	if changed {
		rec.touch(s.now())
	}
}

func processingKey(t target, locale string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.key.space, t.key.env, t.id, locale)
}

func localizedFile(rec *record, locale string) map[string]any {
	fields, _ := rec.body["fields"].(map[string]any)
	files, _ := fields["file"].(map[string]any)
	file, _ := files[locale].(map[string]any)
	return file
}

func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, rec, ok := s.existing(w, r)
	if !ok {
		return
	}
	if t.coll != "api_keys" {
		writeError(w, r, http.StatusNotFound, "NotFound", "The resource could not be found.")
		return
	}
	rec.body["accessToken"] = newID()
	rec.touch(s.now())
	if s.emptyRegenerate {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, rec.doc())
}
