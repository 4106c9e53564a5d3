package logger

import "context"

type requestIDKey struct{}

// WithRequestID returns a context whose log entries carry id as request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

func withRequestID(ctx context.Context, fields []Field) []Field {
	if id, ok := RequestID(ctx); ok {
		return append(fields, String("request_id", id))
	}
	return fields
}
