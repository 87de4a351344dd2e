// Package guard is the access gate for protected operations: it extracts the bearer token
// from a credential header, verifies it and hands the caller's identity to the operation.
// Transports adapt it (gRPC interceptor, gin middleware); none reimplements it.
package guard

import (
	"context"
	"strings"

	"authledger/internal/identity/domain"
)

const bearerScheme = "bearer"

// Verifier resolves a bearer token to an identity. Any failure must be domain.ErrUnauthenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// Guard authenticates credential headers against a Verifier.
type Guard struct {
	verifier Verifier
}

// New returns a Guard backed by v.
func New(v Verifier) *Guard {
	return &Guard{verifier: v}
}

// BearerToken returns the token from a header of the form "Bearer <token>". The scheme is
// matched case-insensitively and surrounding whitespace is ignored. A missing header, another
// scheme, an empty token or more than one token all return domain.ErrUnauthenticated.
func BearerToken(header string) (string, error) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], bearerScheme) {
		return "", domain.ErrUnauthenticated
	}
	return fields[1], nil
}

// Authenticate extracts and verifies the bearer token in header. It returns the caller's
// identity and the raw token, or domain.ErrUnauthenticated.
func (g *Guard) Authenticate(ctx context.Context, header string) (*domain.Identity, string, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, "", err
	}
	id, err := g.verifier.Verify(ctx, token)
	if err != nil || id == nil {
		return nil, "", domain.ErrUnauthenticated
	}
	return id, token, nil
}

// Operation is a protected operation. It receives the verified identity and never runs
// for an unauthenticated caller.
type Operation[Req, Resp any] func(ctx context.Context, id *domain.Identity, req Req) (Resp, error)

// Guarded is an Operation composed with the guard; it takes the raw credential header.
type Guarded[Req, Resp any] func(ctx context.Context, header string, req Req) (Resp, error)

// Protect wraps op so that it only runs after g has authenticated header. The identity and
// token are also stored in the context passed to op.
func Protect[Req, Resp any](g *Guard, op Operation[Req, Resp]) Guarded[Req, Resp] {
	return func(ctx context.Context, header string, req Req) (Resp, error) {
		id, token, err := g.Authenticate(ctx, header)
		if err != nil {
			var zero Resp
			return zero, err
		}
		return op(WithIdentity(ctx, id, token), id, req)
	}
}
