package guard

import (
	"context"

	"authledger/internal/identity/domain"
)

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	tokenKey    = contextKey{"token"}
	slotKey     = contextKey{"identity_slot"}
)

// slot lets middleware that runs before authentication observe the identity set further in.
type slot struct {
	id *domain.Identity
}

// WithIdentity returns a context carrying the authenticated identity and its bearer token.
// Handlers read them via IdentityFrom and TokenFrom.
func WithIdentity(ctx context.Context, id *domain.Identity, token string) context.Context {
	if s, ok := ctx.Value(slotKey).(*slot); ok {
		s.id = id
	}
	ctx = context.WithValue(ctx, identityKey, id)
	ctx = context.WithValue(ctx, tokenKey, token)
	return ctx
}

// WithIdentitySlot returns a context in which an identity stored later by WithIdentity on a
// derived context also becomes visible to IdentityFrom on the returned one. Use it in outer
// middleware such as access logs. Not safe for concurrent use within one request.
func WithIdentitySlot(ctx context.Context) context.Context {
	if _, ok := ctx.Value(slotKey).(*slot); ok {
		return ctx
	}
	return context.WithValue(ctx, slotKey, &slot{})
}

// IdentityFrom returns the identity from context and true if set; otherwise nil, false.
func IdentityFrom(ctx context.Context) (*domain.Identity, bool) {
	if v, ok := ctx.Value(identityKey).(*domain.Identity); ok && v != nil {
		return v, true
	}
	if s, ok := ctx.Value(slotKey).(*slot); ok && s.id != nil {
		return s.id, true
	}
	return nil, false
}

// TokenFrom returns the bearer token from context and true if set; otherwise "", false.
func TokenFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenKey).(string)
	return v, ok && v != ""
}

// UserID returns the authenticated user's ID, or "" when the context is unauthenticated.
func UserID(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.UserID
	}
	return ""
}
