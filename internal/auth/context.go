package auth

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey int

const adminKey ctxKey = iota

// WithAdmin marks the context as authorized by the admin gate.
func WithAdmin(ctx context.Context, isAdmin bool) context.Context {
	return context.WithValue(ctx, adminKey, isAdmin)
}

// IsAdminFromContext returns true if the request passed the admin gate.
func IsAdminFromContext(ctx context.Context) bool {
	if v := ctx.Value(adminKey); v != nil {
		if isAdmin, ok := v.(bool); ok {
			return isAdmin
		}
	}
	return false
}
