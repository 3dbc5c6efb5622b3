package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyHTTPError_Categories(t *testing.T) {
	t.Parallel()
	cases := map[int]ErrorCategory{
		400: Irrecoverable,
		401: Irrecoverable,
		404: Irrecoverable,
		408: Recoverable,
		409: Irrecoverable,
		422: Irrecoverable,
		429: Recoverable,
		500: Recoverable,
		503: Recoverable,
		302: Recoverable,
	}
	for code, want := range cases {
		if got := ClassifyHTTPError("GET", "/x", code, nil).Category; got != want {
			t.Fatalf("status %d: category = %s, want %s", code, got, want)
		}
	}
}

func TestClassifyHTTPError_ParsesAPIErrorDocument(t *testing.T) {
	t.Parallel()
	body := []byte(`{"sys":{"type":"Error","id":"VersionMismatch"},"message":"Version mismatch","requestId":"req-1"}`)
	ce := ClassifyHTTPError("PUT", "/spaces/s1/entries/43", 409, body)
	if ce.API == nil {
		t.Fatal("expected API error document")
	}
	if ce.ErrorID() != "VersionMismatch" || ce.API.RequestID != "req-1" {
		t.Fatalf("unexpected document: %+v", ce.API)
	}
	want := "[Irrecoverable] HTTP 409 VersionMismatch: PUT /spaces/s1/entries/43 failed: Version mismatch"
	if ce.Error() != want {
		t.Fatalf("Error() = %q, want %q", ce.Error(), want)
	}
	if !IsVersionConflict(fmt.Errorf("save: %w", ce)) {
		t.Fatal("expected version conflict through wrapping")
	}
}

func TestClassifyHTTPError_NonDocumentBody(t *testing.T) {
	t.Parallel()
	ce := ClassifyHTTPError("GET", "/spaces/s1", 502, []byte("bad gateway"))
	if ce.API != nil {
		t.Fatalf("unexpected API document: %+v", ce.API)
	}
	if ce.Body != "bad gateway" {
		t.Fatalf("Body = %q", ce.Body)
	}
	if IsIrrecoverable(ce) {
		t.Fatal("502 must be recoverable")
	}
}

func TestPredicates(t *testing.T) {
	t.Parallel()
	nf := ClassifyHTTPError("GET", "/spaces/s1/entries/x", 404, []byte(`{"sys":{"type":"Error","id":"NotFound"}}`))
	if !IsNotFound(nf) || !IsIrrecoverable(nf) || IsVersionConflict(nf) {
		t.Fatalf("unexpected predicates for 404: %v", nf)
	}
	if StatusCode(fmt.Errorf("wrapped: %w", nf)) != 404 {
		t.Fatal("StatusCode must see through wrapping")
	}
	plain := errors.New("plain")
	if IsIrrecoverable(plain) || IsNotFound(plain) || StatusCode(plain) != 0 {
		t.Fatal("plain errors carry no classification")
	}
}

func TestNewNetworkError(t *testing.T) {
	t.Parallel()
	ne := NewNetworkError("GET", "/spaces/s1", context.DeadlineExceeded)
	if ne.Category != Recoverable || ne.StatusCode != 0 {
		t.Fatalf("unexpected network error: %+v", ne)
	}
	if !errors.Is(ne, context.DeadlineExceeded) {
		t.Fatal("network error must unwrap to its cause")
	}
}
