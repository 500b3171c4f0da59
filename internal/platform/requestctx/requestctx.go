package requestctx

import "context"

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	clientIPKey  ctxKey = "client_ip"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP is the address recorded by the request middleware, or "".
func ClientIP(ctx context.Context) string {
	if value, ok := ctx.Value(clientIPKey).(string); ok {
		return value
	}
	return ""
}
