package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
)

type fakeWindowStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{counts: map[string]int64{}}
}

func (f *fakeWindowStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func postJSON(path, body, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = remote
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code
}

func TestAuthRateLimitKeepsBodyForHandler(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2, "email")
	handler := AuthRateLimit(policy, newFakeWindowStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"lector@biblionet.hn"`) {
			t.Fatalf("unexpected body: %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON("/login", `{"email":"lector@biblionet.hn","password":"secreta"}`, "1.2.3.4:5678"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimitCountsEmailAcrossCase(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2, "email")
	handler := AuthRateLimit(policy, newFakeWindowStore(), nil)(okHandler())

	emails := []string{"Bloqueado@BiblioNet.hn", " bloqueado@biblionet.hn", "BLOQUEADO@biblionet.hn"}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postJSON("/login", `{"email":"`+email+`"}`, "10.0.0."+string(rune('1'+i))+":80"))
		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
		}
		if i == 2 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if errorCode(t, rec) != string(pkgerrors.CodeRateLimit) {
				t.Fatalf("unexpected code in %s", rec.Body.String())
			}
			if rec.Header().Get("Retry-After") != "60" {
				t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
			}
		}
	}
}

func TestAuthRateLimitRegistrationCountsDNI(t *testing.T) {
	policy := NewAuthRateLimitPolicy("register", time.Minute, 0, 1, "email", "dni")
	handler := AuthRateLimit(policy, newFakeWindowStore(), nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON("/registro", `{"email":"a@biblionet.hn","dni":"0801199912345"}`, "5.6.7.8:1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// New email, same DNI.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON("/registro", `{"email":"b@biblionet.hn","dni":"0801199912345"}`, "5.6.7.9:1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on reused dni, got %d", rec.Code)
	}
}

func TestAuthRateLimitIPLimit(t *testing.T) {
	policy := NewAuthRateLimitPolicy("register", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, newFakeWindowStore(), nil)(okHandler())

	for i := 0; i < 2; i++ {
		req := postJSON("/registro", `{"email":"foo@biblionet.hn"}`, "5.6.7.8:1234")
		req.Header.Set("X-Forwarded-For", "200.1.1.1, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected success, got %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	}
}

func TestAuthRateLimitStoreFailureIsDependency(t *testing.T) {
	store := newFakeWindowStore()
	store.err = errors.New("redis down")
	policy := NewAuthRateLimitPolicy("login", time.Minute, 5, 5)
	handler := AuthRateLimit(policy, store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON("/login", `{"email":"x@biblionet.hn"}`, "1.1.1.1:1"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", 0, 1, 1)
	handler := AuthRateLimit(policy, newFakeWindowStore(), nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postJSON("/login", `{"email":"x@biblionet.hn"}`, "1.1.1.1:1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
}
