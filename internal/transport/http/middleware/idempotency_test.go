package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"staffdesk/internal/domain/auth"
)

func TestRequestHashDeterministic(t *testing.T) {
	hash1 := RequestHash([]byte("payload"))
	hash2 := RequestHash([]byte("payload"))
	hash3 := RequestHash([]byte("other"))

	if hash1 != hash2 {
		t.Fatal("expected deterministic hash")
	}
	if hash1 == hash3 {
		t.Fatal("expected different hash for different payload")
	}
}

func idempotentRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leaves", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, key)
	return req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: "e1", Role: auth.RoleEmployee}))
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	calls := 0
	handler := Idempotency(NewMemoryIdempotencyStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"n":1}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest(`{"a":1}`, "k1"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idempotentRequest(`{"a":1}`, "k1"))

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Body.String() != `{"success":true,"data":{"n":1}}` {
		t.Fatalf("unexpected replay body: %s", second.Body.String())
	}

	conflict := httptest.NewRecorder()
	handler.ServeHTTP(conflict, idempotentRequest(`{"a":2}`, "k1"))
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d", conflict.Code)
	}
}

func TestIdempotencySkipsFailuresAndAnonymous(t *testing.T) {
	calls := 0
	handler := Idempotency(NewMemoryIdempotencyStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest(`{}`, "k2"))
	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest(`{}`, "k2"))

	anon := httptest.NewRequest(http.MethodPost, "/api/v1/leaves", strings.NewReader(`{}`))
	anon.Header.Set(IdempotencyHeader, "k2")
	handler.ServeHTTP(httptest.NewRecorder(), anon)

	if calls != 3 {
		t.Fatalf("expected every request to reach the handler, got %d", calls)
	}
}

func TestMemoryIdempotencyPurge(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	ctx := context.Background()
	if err := store.Save(ctx, "u1", "POST /api/v1/reports", "k1", "h1", StoredResponse{Status: 201, Body: []byte(`{}`)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	purged, err := store.Purge(ctx, time.Now().Add(-time.Hour))
	if err != nil || purged != 0 {
		t.Fatalf("expected nothing purged, got %d (%v)", purged, err)
	}
	purged, err = store.Purge(ctx, time.Now().Add(time.Second))
	if err != nil || purged != 1 {
		t.Fatalf("expected one key purged, got %d (%v)", purged, err)
	}
	if _, found, _ := store.Check(ctx, "u1", "POST /api/v1/reports", "k1", "h1"); found {
		t.Fatal("purged key must not replay")
	}
}
