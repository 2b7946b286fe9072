package tools

import (
	"context"

	"github.com/google/uuid"
)

// userIDKey is an unexported context key for zero-allocation type safety.
type userIDKey struct{}

// ContextWithUserID stores the authenticated user identity in context.
// The conversation layer injects it before dispatching tool calls so every
// tool query is scoped to the calling user's cellar.
func ContextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext retrieves the user identity from context.
// Returns uuid.Nil (and false) if not set.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}
