// Package requestctx carries request-scoped identifiers through context.
package requestctx

import "context"

type ctxKey struct{}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// RequestIDOr returns the stored request id, or fallback when none is set.
func RequestIDOr(ctx context.Context, fallback func() string) string {
	if id := RequestID(ctx); id != "" {
		return id
	}
	return fallback()
}
