package domain

import "time"

// Identity is the authenticated caller forwarded to protected operations once a bearer
// token has passed decoding and the revocation check.
type Identity struct {
	UserID    string
	Username  string
	TokenID   string // jti of the presented token
	IssuedAt  time.Time
	ExpiresAt time.Time
}
