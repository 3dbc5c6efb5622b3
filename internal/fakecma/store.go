package fakecma

import (
	"sort"
	"strings"
	"time"
)

// record is one stored resource. body holds every top-level key but sys.
type record struct {
	typ       string
	id        string
	version   int
	published *int
	archived  *int
	createdAt time.Time
	updatedAt time.Time
	links     map[string]map[string]any // extra sys links (space, environment, contentType)
	body      map[string]any
	snapshot  map[string]any // document at publish time
}

func (r *record) sys() map[string]any {
	sys := map[string]any{
		"type":      r.typ,
		"id":        r.id,
		"version":   r.version,
		"createdAt": r.createdAt.UTC().Format(time.RFC3339Nano),
		"updatedAt": r.updatedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.published != nil {
		sys["publishedVersion"] = *r.published
	}
	if r.archived != nil {
		sys["archivedVersion"] = *r.archived
	}
	for k, v := range r.links {
		sys[k] = v
	}
	return sys
}

func (r *record) doc() map[string]any {
	out := make(map[string]any, len(r.body)+1)
	for k, v := range r.body {
		out[k] = v
	}
	out["sys"] = r.sys()
	return out
}

func (r *record) touch(now time.Time) {
	r.version++
	r.updatedAt = now
}

func linkTo(linkType, id string) map[string]any {
	return map[string]any{"sys": map[string]any{"type": "Link", "linkType": linkType, "id": id}}
}

// bucket is one collection of one environment.
type bucket map[string]*record

func (b bucket) sorted() []*record {
	out := make([]*record, 0, len(b))
	for _, r := range b {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.Before(out[j].createdAt)
		}
		return out[i].id < out[j].id
	})
	return out
}

// scopeKey addresses the records of one space environment. Space-level
// paths use the master environment.
type scopeKey struct {
	space string
	env   string
}

func collectionType(coll string) string {
	switch coll {
	case "content_types":
		return "ContentType"
	case "entries":
		return "Entry"
	case "assets":
		return "Asset"
	case "locales":
		return "Locale"
	case "environments":
		return "Environment"
	case "api_keys":
		return "ApiKey"
	default:
		return strings.TrimSuffix(coll, "s")
	}
}

// collectLinks returns every link stub under v.
func collectLinks(v any, out *[]map[string]any) {
	switch node := v.(type) {
	case map[string]any:
		if sys, ok := node["sys"].(map[string]any); ok && sys["type"] == "Link" {
			*out = append(*out, sys)
			return
		}
		for _, child := range node {
			collectLinks(child, out)
		}
	case []any:
		for _, child := range node {
			collectLinks(child, out)
		}
	}
}
