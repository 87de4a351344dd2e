package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authledger/internal/security"
	"authledger/internal/session/domain"
)

// PostgresLedger persists sessions and revoked tokens keyed by the token's SHA-256 hash.
// Sessions read back from it carry ID but not Token.
type PostgresLedger struct {
	pool *pgxpool.Pool
	nowF func() time.Time
}

// NewPostgresLedger returns a ledger backed by the sessions and revoked_tokens tables.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool, nowF: time.Now}
}

// WithClock sets the time source used for expiry decisions. Call before use.
func (l *PostgresLedger) WithClock(now func() time.Time) *PostgresLedger {
	l.nowF = now
	return l
}

// Register upserts the session row for s.Token.
func (l *PostgresLedger) Register(ctx context.Context, s *domain.Session) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = l.nowF().UTC()
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO sessions (token_hash, user_id, username, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_hash) DO UPDATE
		SET user_id = EXCLUDED.user_id, username = EXCLUDED.username,
		    created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		security.HashToken(s.Token), s.UserID, s.Username, created, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

// Revoke deletes the session row and upserts the revoked entry in one transaction.
// The retained expiration never shrinks.
func (l *PostgresLedger) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	hash := security.HashToken(token)
	now := l.nowF().UTC()
	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		var sessionExp time.Time
		err := tx.QueryRow(ctx, `DELETE FROM sessions WHERE token_hash = $1 RETURNING expires_at`, hash).Scan(&sessionExp)
		switch {
		case err == nil:
			if sessionExp.After(expiresAt) {
				expiresAt = sessionExp
			}
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO revoked_tokens (token_hash, revoked_at, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (token_hash) DO UPDATE
			SET expires_at = GREATEST(revoked_tokens.expires_at, EXCLUDED.expires_at)`,
			hash, now, expiresAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *PostgresLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1)`,
		security.HashToken(token)).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked: %w", err)
	}
	return revoked, nil
}

func (l *PostgresLedger) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT token_hash, user_id, username, created_at, expires_at
		FROM sessions WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at`, userID, l.nowF().UTC())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	out := make([]*domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) Get(ctx context.Context, token string) (*domain.Session, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT token_hash, user_id, username, created_at, expires_at
		FROM sessions WHERE token_hash = $1`, security.HashToken(token))
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (l *PostgresLedger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, `SELECT count(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (l *PostgresLedger) ReapExpired(ctx context.Context) (int, error) {
	tag, err := l.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, l.nowF().UTC())
	if err != nil {
		return 0, fmt.Errorf("reap sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (l *PostgresLedger) PurgeRevoked(ctx context.Context) (int, error) {
	tag, err := l.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, l.nowF().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.Username, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return &s, nil
}
