package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyCompanyID contextKey = "company_id"
	ContextKeyUserID    contextKey = "user_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithCaller records the tenant and uploader on the context.
func WithCaller(ctx context.Context, companyID, userID string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyCompanyID, companyID)
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// CallerFromContext returns the tenant and uploader, empty when unset.
func CallerFromContext(ctx context.Context) (companyID, userID string) {
	companyID, _ = ctx.Value(ContextKeyCompanyID).(string)
	userID, _ = ctx.Value(ContextKeyUserID).(string)
	return companyID, userID
}

// WithTimeout returns parent unchanged (with a no-op cancel) when timeout is not positive.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, timeout)
}
