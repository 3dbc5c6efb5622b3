package request

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
)

// recorder captures the options of the last call and replies with resp.
type recorder struct {
	calls []Options
	resp  json.RawMessage
	err   error
}

func (r *recorder) Do(_ context.Context, opts Options) (json.RawMessage, error) {
	r.calls = append(r.calls, opts)
	return r.resp, r.err
}

func TestBuilder_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()
	base := New(&recorder{}).Path("spaces", "s1").Headers(map[string]string{"A": "1"})
	derived := base.Path("entries").Headers(map[string]string{"B": "2"}).Payload("x")

	if got := base.PathString(); got != "spaces/s1" {
		t.Fatalf("base path changed: %q", got)
	}
	if got := derived.PathString(); got != "spaces/s1/entries" {
		t.Fatalf("derived path = %q", got)
	}
	if _, ok := base.Options(http.MethodGet).Headers["B"]; ok {
		t.Fatal("header leaked into receiver")
	}
	if base.Options(http.MethodPost).Payload != nil {
		t.Fatal("payload leaked into receiver")
	}
}

func TestSend_OmitsHeadersWhenEmpty(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	if _, err := New(rec).Path("a").Get(context.Background()); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("adapter calls = %d", len(rec.calls))
	}
	if rec.calls[0].Headers != nil {
		t.Fatalf("expected nil headers, got %v", rec.calls[0].Headers)
	}
	if rec.calls[0].Method != http.MethodGet || rec.calls[0].Path != "a" {
		t.Fatalf("unexpected options: %+v", rec.calls[0])
	}
}

func TestSend_PutHeadersOnlyForPut(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	req := New(rec).Headers(map[string]string{"A": "1"}).PutHeaders(map[string]string{"X-Contentful-Version": "3"})

	ctx := context.Background()
	_, _ = req.Post(ctx)
	_, _ = req.Put(ctx)
	_, _ = req.Delete(ctx)

	if _, ok := rec.calls[0].Headers["X-Contentful-Version"]; ok {
		t.Fatal("put header sent with POST")
	}
	if rec.calls[1].Headers["X-Contentful-Version"] != "3" || rec.calls[1].Headers["A"] != "1" {
		t.Fatalf("PUT headers = %v", rec.calls[1].Headers)
	}
	if _, ok := rec.calls[2].Headers["X-Contentful-Version"]; ok {
		t.Fatal("put header sent with DELETE")
	}
}

func TestDeleteHeader_RemovesFromBothSets(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	req := New(rec).
		Headers(map[string]string{"X-Contentful-Version": "1"}).
		PutHeaders(map[string]string{"X-Contentful-Version": "2"}).
		DeleteHeader("X-Contentful-Version")

	_, _ = req.Put(context.Background())
	if rec.calls[0].Headers != nil {
		t.Fatalf("expected no headers, got %v", rec.calls[0].Headers)
	}
}

func TestThrow_SkipsAdapter(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	sentinel := errors.New("nope")
	_, err := New(rec).Throw(sentinel).Get(context.Background())
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatal("adapter must not be called")
	}
}

func TestSend_AdapterErrorPropagatesUnchanged(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("transport down")
	_, err := New(&recorder{err: sentinel}).Get(context.Background())
	if err != sentinel {
		t.Fatalf("expected unchanged error, got %v", err)
	}
}

func TestRejectEmpty(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		resp json.RawMessage
		fail bool
	}{
		{"nil", nil, true},
		{"null", json.RawMessage("null"), true},
		{"blank", json.RawMessage("  "), true},
		{"object", json.RawMessage(`{"ok":true}`), false},
	}
	for _, c := range cases {
		_, err := New(&recorder{resp: c.resp}).RejectEmpty().Post(context.Background())
		if c.fail && !errors.Is(err, ErrResponseNotAvailable) {
			t.Fatalf("%s: expected ErrResponseNotAvailable, got %v", c.name, err)
		}
		if !c.fail && err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
	}
	// Without RejectEmpty an empty body is success.
	if _, err := New(&recorder{}).Delete(context.Background()); err != nil {
		t.Fatalf("empty response should succeed: %v", err)
	}
}

func TestQuery_Merges(t *testing.T) {
	t.Parallel()
	req := New(&recorder{}).Query(url.Values{"limit": {"10"}}).Query(url.Values{"skip": {"5"}})
	q := req.Options(http.MethodGet).Query
	if q.Get("limit") != "10" || q.Get("skip") != "5" {
		t.Fatalf("query = %v", q)
	}
}

func TestSend_CancelledContext(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(rec).Get(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatal("adapter must not be called for a cancelled context")
	}
}
