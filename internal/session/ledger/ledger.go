// Package ledger is the authoritative record of live sessions and revoked tokens.
//
// A token is accepted only if it decodes, has not expired, and IsRevoked reports false.
// Implementations must make a completed Revoke visible to every subsequent IsRevoked call.
package ledger

import (
	"context"
	"time"

	"authledger/internal/session/domain"
)

// Ledger stores session records keyed by token and the set of revoked tokens.
type Ledger interface {
	// Register inserts s keyed by s.Token, silently replacing any record for the same token.
	Register(ctx context.Context, s *domain.Session) error
	// Revoke removes the session for token (absence is not an error) and adds token to the
	// revoked set. expiresAt is the token's natural expiration and bounds how long the
	// revoked entry must be retained. Revoking twice has the same effect as once.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	// IsRevoked reports whether token is in the revoked set.
	IsRevoked(ctx context.Context, token string) (bool, error)
	// ListByUser returns the registered, unexpired sessions of userID ordered by creation time.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// Get returns the session for token, or nil if none is registered.
	Get(ctx context.Context, token string) (*domain.Session, error)
	// Count returns the number of registered sessions, expired-but-unreaped ones included.
	Count(ctx context.Context) (int, error)
	// ReapExpired removes sessions whose expiration has passed. The revoked set is untouched.
	ReapExpired(ctx context.Context) (int, error)
	// PurgeRevoked drops revoked entries whose token has expired; the codec rejects them anyway.
	PurgeRevoked(ctx context.Context) (int, error)
}
