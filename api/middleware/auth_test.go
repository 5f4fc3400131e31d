package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/auth"
	"github.com/biblionet/biblionet-backend/pkg/auth/session"
	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/biblionet/biblionet-backend/pkg/enums"
)

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "biblionet", ExpirationMinutes: 60}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT(), stubSessionVerifier{ok: true}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT(), stubSessionVerifier{ok: true}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := testJWT()
	token := mintTestToken(t, cfg, 3, enums.RoleLibrarian, nil)
	handler := Auth(cfg, stubSessionVerifier{ok: false}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSessionStoreFailureIsDependencyError(t *testing.T) {
	cfg := testJWT()
	token := mintTestToken(t, cfg, 3, enums.RoleLibrarian, nil)
	handler := Auth(cfg, stubSessionVerifier{err: errors.New("redis down")}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestAuthSeedsCustomerPrincipal(t *testing.T) {
	cfg := testJWT()
	customerID := uint(9)
	token := mintTestToken(t, cfg, 4, enums.RoleCustomer, &customerID)

	var captured struct {
		user     uint
		role     enums.Role
		customer uint
		hasCust  bool
		session  string
	}
	handler := Auth(cfg, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		captured.customer, captured.hasCust = CustomerIDFromContext(r.Context())
		captured.session = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != 4 {
		t.Fatalf("expected user 4 got %d", captured.user)
	}
	if captured.role != enums.RoleCustomer {
		t.Fatalf("expected role cliente got %s", captured.role)
	}
	if !captured.hasCust || captured.customer != 9 {
		t.Fatalf("expected customer 9 got %d (%v)", captured.customer, captured.hasCust)
	}
	if captured.session == "" {
		t.Fatal("expected session id in context")
	}
}

func TestAuthStaffTokenHasNoCustomer(t *testing.T) {
	cfg := testJWT()
	token := mintTestToken(t, cfg, 1, enums.RoleAdmin, nil)

	var hasCustomer bool
	handler := Auth(cfg, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasCustomer = CustomerIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if hasCustomer {
		t.Fatal("staff token should not carry a customer id")
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name string
		role enums.Role
		perm auth.Permission
		want int
	}{
		{"librarian registers sales", enums.RoleLibrarian, auth.PermRegisterSales, http.StatusOK},
		{"librarian cannot manage staff", enums.RoleLibrarian, auth.PermManageStaff, http.StatusForbidden},
		{"admin manages loan rules", enums.RoleAdmin, auth.PermManageLoanRules, http.StatusOK},
		{"customer cannot touch inventory", enums.RoleCustomer, auth.PermManageInventory, http.StatusForbidden},
		{"customer reserves", enums.RoleCustomer, auth.PermReserveBooks, http.StatusOK},
		{"anonymous", "", auth.PermReserveBooks, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequirePermission(tc.perm, nil)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.role != "" {
				req = req.WithContext(WithPrincipal(req.Context(), 1, tc.role, nil))
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, resp.Code)
			}
		})
	}
}

func TestRequireCustomer(t *testing.T) {
	handler := RequireCustomer(nil)(okHandler())

	staff := httptest.NewRequest(http.MethodGet, "/", nil)
	staff = staff.WithContext(WithPrincipal(staff.Context(), 1, enums.RoleLibrarian, nil))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	id := uint(5)
	customer := httptest.NewRequest(http.MethodGet, "/", nil)
	customer = customer.WithContext(WithPrincipal(customer.Context(), 2, enums.RoleCustomer, &id))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, customer)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uint, role enums.Role, customerID *uint) string {
	t.Helper()
	payload := auth.AccessTokenPayload{
		UserID:     userID,
		Role:       role,
		CustomerID: customerID,
		JTI:        session.NewAccessID(),
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def": "abc.def",
		"bearer   abc":   "abc",
		"abc.def":        "abc.def",
		"":               "",
		"Basic dXNlcjpw": "Basic dXNlcjpw",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		if got := BearerToken(req); got != want {
			t.Fatalf("header %q: got %q want %q", header, got, want)
		}
	}
}
