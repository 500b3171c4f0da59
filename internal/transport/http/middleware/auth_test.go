package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staffdesk/internal/domain/auth"
)

func TestAuthMiddlewareSetsUser(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", Email: "u1@example.com", Role: auth.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	called := false
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		user, ok := GetUser(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		if user.UserID != "u1" || user.Role != auth.RoleAdmin || user.Email != "u1@example.com" {
			t.Fatalf("unexpected user: %+v", user)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("handler not called")
	}
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("other", auth.Claims{UserID: "u1", Role: auth.RoleEmployee}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user for forged token")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequireAuthAndAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	RequireAuth(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	employeeReq := httptest.NewRequest(http.MethodGet, "/", nil)
	employeeReq = employeeReq.WithContext(WithUser(employeeReq.Context(), auth.UserContext{UserID: "e1", Role: auth.RoleEmployee}))
	rec = httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, employeeReq)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	adminReq := httptest.NewRequest(http.MethodGet, "/", nil)
	adminReq = adminReq.WithContext(WithUser(adminReq.Context(), auth.UserContext{UserID: "a1", Role: auth.RoleAdmin}))
	rec = httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, adminReq)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
