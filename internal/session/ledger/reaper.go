package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper periodically removes expired sessions and redundant revoked entries from a Ledger.
// Reaping is an optimization only; expired tokens are rejected by the codec regardless.
type Reaper struct {
	ledger   Ledger
	interval time.Duration
	logger   *zap.Logger
}

// NewReaper returns a Reaper that sweeps l every interval. A nil logger discards output.
func NewReaper(l Ledger, interval time.Duration, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{ledger: l, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is done. A non-positive interval disables reaping.
func (r *Reaper) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one reap and purge pass and returns the number of sessions and revoked entries removed.
func (r *Reaper) Sweep(ctx context.Context) (sessions, revoked int) {
	sessions, err := r.ledger.ReapExpired(ctx)
	if err != nil {
		r.logger.Warn("reap expired sessions", zap.Error(err))
	}
	revoked, err = r.ledger.PurgeRevoked(ctx)
	if err != nil {
		r.logger.Warn("purge revoked tokens", zap.Error(err))
	}
	if sessions > 0 || revoked > 0 {
		r.logger.Info("session ledger sweep",
			zap.Int("expired_sessions", sessions),
			zap.Int("purged_revoked", revoked))
	}
	return sessions, revoked
}
