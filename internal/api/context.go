package api

import "context"

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller. A zero UserID means the caller is
// anonymous; anonymous callers still get presence and, mode permitting,
// edit access.
type Identity struct {
	UserID string
	Name   string
}

// IdentityFromContext extracts the caller identity from the context.
func IdentityFromContext(ctx context.Context) Identity {
	if v := ctx.Value(identityKey); v != nil {
		if id, ok := v.(Identity); ok {
			return id
		}
	}

	return Identity{}
}

// UserIDFromContext extracts the user ID from the context.
// Returns empty string if not present.
func UserIDFromContext(ctx context.Context) string {
	return IdentityFromContext(ctx).UserID
}

// withIdentity returns a new context with the caller identity set.
func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
