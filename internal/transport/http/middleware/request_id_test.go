package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"staffdesk/internal/platform/requestctx"
)

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Fatal("expected generated request id")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("response header %q does not match context %q", rec.Header().Get("X-Request-ID"), seen)
	}
}

func TestRequestIDKeepsIncomingAndRecordsClientIP(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "abc-123" {
			t.Fatalf("unexpected request id %q", got)
		}
		if got := requestctx.ClientIP(r.Context()); got != "203.0.113.9" {
			t.Fatalf("unexpected client ip %q", got)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
}
