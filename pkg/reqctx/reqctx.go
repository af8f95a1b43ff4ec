// Package reqctx holds the request-context key the auth middleware sets and
// every downstream handler reads, kept separate from both so that neither
// package has to import the other.
package reqctx

import "context"

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a context carrying the resolved user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID extracts the user id set by the auth middleware.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}
