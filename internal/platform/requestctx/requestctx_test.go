package requestctx

import (
	"context"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ctx := WithClientIP(WithRequestID(context.Background(), "req-1"), "10.0.0.1")
	if got := RequestID(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := ClientIP(ctx); got != "10.0.0.1" {
		t.Fatalf("expected 10.0.0.1, got %q", got)
	}
	if RequestID(context.Background()) != "" || ClientIP(context.Background()) != "" {
		t.Fatal("expected empty values on bare context")
	}
}
