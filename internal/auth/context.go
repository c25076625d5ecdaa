package auth

import (
	"context"

	"github.com/debemdeboas/the-kennel/internal/model"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// ContextKeyOwner is the key for the authenticated site owner in request context
const ContextKeyOwner ContextKey = "owner"

// ContextWithOwner returns a new context with the site owner set
func ContextWithOwner(ctx context.Context, owner model.OwnerID) context.Context {
	return context.WithValue(ctx, ContextKeyOwner, owner)
}

// OwnerFromContext extracts the site owner from context
func OwnerFromContext(ctx context.Context) (model.OwnerID, bool) {
	owner, ok := ctx.Value(ContextKeyOwner).(model.OwnerID)
	return owner, ok && owner != ""
}
