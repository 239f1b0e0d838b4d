package auth

import "context"

// ctxKey is an unexported key type so other packages cannot collide with
// the identity entry.
type ctxKey int

const identityCtxKey ctxKey = iota

// SetIdentity returns a context carrying the authenticated identity.
// Downstream handlers read it back with IdentityFromContext.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFromContext returns the authenticated identity, or nil when the
// request was not authenticated (auth disabled or noop provider).
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityCtxKey).(*Identity)
	return id
}
