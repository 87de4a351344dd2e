package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"authledger/internal/security"
	"authledger/internal/session/domain"
)

const (
	sessionKeyPrefix = "session:"
	revokedKeyPrefix = "revoked:"
	userIndexPattern = "user:*:sessions"

	// minRevokedRetention keeps a revoked entry alive briefly even when the token's own
	// expiration has already passed, so a concurrent verify never races the key's removal.
	minRevokedRetention = time.Minute
	scanBatch           = 100
)

// RedisLedger stores sessions as hashes and revoked tokens as plain keys, all expiring with
// the token. Keys embed the token hash, never the raw token. Redis expiry performs the
// blacklist purge; ReapExpired only prunes per-user index sets.
type RedisLedger struct {
	client redis.UniversalClient
	nowF   func() time.Time
}

// NewRedisLedger returns a ledger backed by client.
func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{client: client, nowF: time.Now}
}

// WithClock sets the time source used for expiry decisions. Call before use.
func (l *RedisLedger) WithClock(now func() time.Time) *RedisLedger {
	l.nowF = now
	return l
}

func sessionKey(hash string) string    { return sessionKeyPrefix + hash }
func revokedKey(hash string) string    { return revokedKeyPrefix + hash }
func userIndexKey(userID string) string { return fmt.Sprintf("user:%s:sessions", userID) }

func (l *RedisLedger) Register(ctx context.Context, s *domain.Session) error {
	now := l.nowF()
	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = now.UTC()
	}
	hash := security.HashToken(s.Token)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(hash), map[string]interface{}{
			"user_id":    s.UserID,
			"username":   s.Username,
			"created_at": created.UTC().Format(time.RFC3339Nano),
			"expires_at": s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		})
		pipe.PExpire(ctx, sessionKey(hash), ttl)
		pipe.SAdd(ctx, userIndexKey(s.UserID), hash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

func (l *RedisLedger) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	hash := security.HashToken(token)
	now := l.nowF()

	vals, err := l.client.HMGet(ctx, sessionKey(hash), "user_id", "expires_at").Result()
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	userID, _ := vals[0].(string)
	if raw, ok := vals[1].(string); ok {
		if exp, err := time.Parse(time.RFC3339Nano, raw); err == nil && exp.After(expiresAt) {
			expiresAt = exp
		}
	}
	ttl := expiresAt.Sub(now)
	if ttl < minRevokedRetention {
		ttl = minRevokedRetention
	}
	if existing, err := l.client.PTTL(ctx, revokedKey(hash)).Result(); err == nil && existing > ttl {
		ttl = existing
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, revokedKey(hash), now.UTC().Format(time.RFC3339Nano), ttl)
		pipe.Del(ctx, sessionKey(hash))
		if userID != "" {
			pipe.SRem(ctx, userIndexKey(userID), hash)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *RedisLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := l.client.Exists(ctx, revokedKey(security.HashToken(token))).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked: %w", err)
	}
	return n > 0, nil
}

func (l *RedisLedger) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	hashes, err := l.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(hashes) == 0 {
		return []*domain.Session{}, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(hashes))
	_, err = l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, h := range hashes {
			cmds[i] = pipe.HGetAll(ctx, sessionKey(h))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := l.nowF()
	out := make([]*domain.Session, 0, len(hashes))
	for i, cmd := range cmds {
		s, ok := decodeSession(hashes[i], cmd.Val())
		if !ok || s.Expired(now) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (l *RedisLedger) Get(ctx context.Context, token string) (*domain.Session, error) {
	hash := security.HashToken(token)
	fields, err := l.client.HGetAll(ctx, sessionKey(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s, ok := decodeSession(hash, fields)
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (l *RedisLedger) Count(ctx context.Context) (int, error) {
	n := 0
	iter := l.client.Scan(ctx, 0, sessionKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// ReapExpired removes index entries whose session hash has expired out of Redis.
func (l *RedisLedger) ReapExpired(ctx context.Context) (int, error) {
	removed := 0
	iter := l.client.Scan(ctx, 0, userIndexPattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		hashes, err := l.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return removed, fmt.Errorf("reap sessions: %w", err)
		}
		for _, h := range hashes {
			n, err := l.client.Exists(ctx, sessionKey(h)).Result()
			if err != nil {
				return removed, fmt.Errorf("reap sessions: %w", err)
			}
			if n > 0 {
				continue
			}
			if err := l.client.SRem(ctx, indexKey, h).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return removed, fmt.Errorf("reap sessions: %w", err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("reap sessions: %w", err)
	}
	return removed, nil
}

// PurgeRevoked is a no-op: revoked keys carry the token's expiration as their TTL.
func (l *RedisLedger) PurgeRevoked(ctx context.Context) (int, error) {
	return 0, nil
}

func decodeSession(hash string, fields map[string]string) (*domain.Session, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, false
	}
	expires, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, false
	}
	return &domain.Session{
		ID:        hash,
		UserID:    fields["user_id"],
		Username:  fields["username"],
		CreatedAt: created,
		ExpiresAt: expires,
	}, true
}
