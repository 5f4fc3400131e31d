package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/biblionet/biblionet-backend/pkg/logger"
)

func TestRequestIDKeepsWellFormedHeader(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/catalogo", nil)
	req.Header.Set(requestIDHeader, "caja-01.req_7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "caja-01.req_7" {
		t.Fatalf("expected inbound id on context, got %q", seen)
	}
	if got := rec.Header().Get(requestIDHeader); got != "caja-01.req_7" {
		t.Fatalf("expected id echoed, got %q", got)
	}
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	for _, inbound := range []string{"", "a b", "x\ny", strings.Repeat("a", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/catalogo", nil)
		req.Header.Set(requestIDHeader, inbound)
		rec := httptest.NewRecorder()
		RequestID(nil)(okHandler()).ServeHTTP(rec, req)

		got := rec.Header().Get(requestIDHeader)
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("inbound %q: expected a minted uuid, got %q", inbound, got)
		}
	}
}

func TestRequestIDTagsLogLines(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api", Output: buf, Format: "json"})
	h := RequestID(logg)(Logging(logg, nil)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/catalogo", nil)
	req.Header.Set(requestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Fatalf("expected request id on the access line; got %s", buf.String())
	}
}

func TestRequestIDFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := RequestIDFromContext(req.Context()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
