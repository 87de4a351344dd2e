package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"authledger/internal/security"
	"authledger/internal/session/domain"
)

// MemoryLedger is an in-process Ledger. A single RWMutex guards both containers so that
// register, revoke and reaping are mutually exclusive and readers see completed writes.
type MemoryLedger struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	revoked  map[string]domain.RevokedToken
	nowF     func() time.Time
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		sessions: make(map[string]*domain.Session),
		revoked:  make(map[string]domain.RevokedToken),
		nowF:     time.Now,
	}
}

// WithClock sets the time source used for expiry decisions. Call before use.
func (l *MemoryLedger) WithClock(now func() time.Time) *MemoryLedger {
	l.nowF = now
	return l
}

func (l *MemoryLedger) Register(ctx context.Context, s *domain.Session) error {
	rec := *s
	if rec.ID == "" {
		rec.ID = security.HashToken(rec.Token)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.nowF().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[rec.Token] = &rec
	return nil
}

func (l *MemoryLedger) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.sessions[token]; ok {
		if s.ExpiresAt.After(expiresAt) {
			expiresAt = s.ExpiresAt
		}
		delete(l.sessions, token)
	}
	entry := domain.RevokedToken{
		TokenHash: security.HashToken(token),
		RevokedAt: l.nowF().UTC(),
		ExpiresAt: expiresAt,
	}
	if prev, ok := l.revoked[token]; ok {
		entry.RevokedAt = prev.RevokedAt
		if prev.ExpiresAt.After(expiresAt) {
			entry.ExpiresAt = prev.ExpiresAt
		}
	}
	l.revoked[token] = entry
	return nil
}

func (l *MemoryLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.revoked[token]
	return ok, nil
}

func (l *MemoryLedger) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	now := l.nowF()
	l.mu.RLock()
	out := make([]*domain.Session, 0)
	for _, s := range l.sessions {
		if s.UserID == userID && !s.Expired(now) {
			c := *s
			out = append(out, &c)
		}
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (l *MemoryLedger) Get(ctx context.Context, token string) (*domain.Session, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.sessions[token]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (l *MemoryLedger) Count(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions), nil
}

func (l *MemoryLedger) ReapExpired(ctx context.Context) (int, error) {
	now := l.nowF()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for token, s := range l.sessions {
		if s.Expired(now) {
			delete(l.sessions, token)
			n++
		}
	}
	return n, nil
}

func (l *MemoryLedger) PurgeRevoked(ctx context.Context) (int, error) {
	now := l.nowF()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for token, entry := range l.revoked {
		if !entry.ExpiresAt.After(now) {
			delete(l.revoked, token)
			n++
		}
	}
	return n, nil
}
