// Package requestctx carries request-scoped identity through contexts.
package requestctx

import "context"

type requestIDKey struct{}

type adminKey struct{}

// WithRequestID stores the correlation id of the current request.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation id stored in ctx.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithAdmin stores the authenticated admin subject.
func WithAdmin(ctx context.Context, subject string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, adminKey{}, subject)
}

// Admin returns the authenticated admin subject, or "" for visitors.
func Admin(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(adminKey{}).(string)
	return value
}
