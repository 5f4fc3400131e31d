package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/biblionet/biblionet-backend/pkg/logger"
)

func accessLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode access line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusConflict, "warn"},
		{http.StatusServiceUnavailable, "error"},
	}
	for _, tc := range cases {
		buf := &bytes.Buffer{}
		logg := logger.New(logger.Options{ServiceName: "api", Output: buf, Format: "json"})
		h := Logging(logg, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte("hola"))
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/catalogo", nil))

		entry := accessLine(t, buf)
		if entry["level"] != tc.level {
			t.Fatalf("status %d: expected level %s, got %v", tc.status, tc.level, entry["level"])
		}
		if entry["status"] != float64(tc.status) {
			t.Fatalf("status %d: logged %v", tc.status, entry["status"])
		}
		if entry["bytes"] != float64(4) {
			t.Fatalf("expected 4 bytes logged, got %v", entry["bytes"])
		}
	}
}

func TestLoggingDefaultsToOKWhenHandlerWritesNothing(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api", Output: buf, Format: "json"})
	h := Logging(logg, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entry := accessLine(t, buf)
	if entry["status"] != float64(http.StatusOK) || entry["route"] != "/health" {
		t.Fatalf("unexpected access line %v", entry)
	}
}
