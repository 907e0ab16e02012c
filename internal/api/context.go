package api

import (
	"context"
	"errors"
)

// userIDKey is the context key for the authenticated user ID.
// Using a struct{} key prevents collisions with other packages.
type userIDKey struct{}

// ErrNoUserInContext is returned when no user ID is found in the context.
var ErrNoUserInContext = errors.New("no user ID in request context")

// WithUserID returns a new context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext extracts the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey{}).(string)
	if !ok || userID == "" {
		return "", ErrNoUserInContext
	}
	return userID, nil
}

// MustUserIDFromContext extracts the user ID or panics.
// Only call from handlers behind AuthMiddleware, which guarantees presence.
func MustUserIDFromContext(ctx context.Context) string {
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		panic(err)
	}
	return userID
}
