package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authledger/internal/security"
	"authledger/internal/session/domain"
)

// runLedgerSuite exercises the behaviour every Ledger implementation must share.
// Tokens are valid for an hour so the wall clock never interferes.
func runLedgerSuite(t *testing.T, newLedger func(t *testing.T) Ledger) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	session := func(token, userID string, offset time.Duration) *domain.Session {
		return &domain.Session{
			Token:     token,
			UserID:    userID,
			Username:  "user-" + userID,
			CreatedAt: base.Add(offset),
			ExpiresAt: base.Add(time.Hour),
		}
	}

	t.Run("register then get", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Register(ctx, session("tok-a", "u1", 0)))

		got, err := l.Get(ctx, "tok-a")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, "user-u1", got.Username)
		assert.Equal(t, security.HashToken("tok-a"), got.ID)
		assert.True(t, got.ExpiresAt.Equal(base.Add(time.Hour)))

		n, err := l.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		revoked, err := l.IsRevoked(ctx, "tok-a")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("get unknown token", func(t *testing.T) {
		l := newLedger(t)
		got, err := l.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("register replaces same token", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Register(ctx, session("tok-a", "u1", 0)))
		require.NoError(t, l.Register(ctx, session("tok-a", "u1", time.Second)))

		n, err := l.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("revoke removes session and blacklists token", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Register(ctx, session("tok-a", "u1", 0)))
		require.NoError(t, l.Register(ctx, session("tok-b", "u1", time.Second)))

		require.NoError(t, l.Revoke(ctx, "tok-a", base.Add(time.Hour)))

		revoked, err := l.IsRevoked(ctx, "tok-a")
		require.NoError(t, err)
		assert.True(t, revoked)

		got, err := l.Get(ctx, "tok-a")
		require.NoError(t, err)
		assert.Nil(t, got)

		sessions, err := l.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, security.HashToken("tok-b"), sessions[0].ID)

		other, err := l.IsRevoked(ctx, "tok-b")
		require.NoError(t, err)
		assert.False(t, other)
	})

	t.Run("revoke unknown token", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Revoke(ctx, "never-registered", base.Add(time.Hour)))

		revoked, err := l.IsRevoked(ctx, "never-registered")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Register(ctx, session("tok-a", "u1", 0)))
		require.NoError(t, l.Revoke(ctx, "tok-a", base.Add(time.Hour)))
		require.NoError(t, l.Revoke(ctx, "tok-a", base.Add(time.Hour)))

		revoked, err := l.IsRevoked(ctx, "tok-a")
		require.NoError(t, err)
		assert.True(t, revoked)

		n, err := l.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("list by user is ordered and isolated", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Register(ctx, session("tok-3", "u1", 2*time.Second)))
		require.NoError(t, l.Register(ctx, session("tok-1", "u1", 0)))
		require.NoError(t, l.Register(ctx, session("tok-2", "u1", time.Second)))
		require.NoError(t, l.Register(ctx, session("tok-x", "u2", 0)))

		sessions, err := l.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, sessions, 3)
		for i, s := range sessions {
			assert.Equal(t, security.HashToken(fmt.Sprintf("tok-%d", i+1)), s.ID)
			assert.Equal(t, "u1", s.UserID)
		}

		none, err := l.ListByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}
