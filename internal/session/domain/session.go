package domain

import "time"

// Session tracks one issued, not yet revoked bearer token.
type Session struct {
	ID        string // SHA-256 of the token, hex; the only token-derived value exposed to clients
	Token     string // raw token; populated only by in-process stores
	UserID    string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session's expiration is at or before now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// RevokedToken is a blacklist entry. ExpiresAt is the natural expiration of the revoked
// token; once it has passed the entry is redundant and may be purged.
type RevokedToken struct {
	TokenHash string
	RevokedAt time.Time
	ExpiresAt time.Time
}
