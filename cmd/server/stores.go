package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"authledger/internal/config"
	"authledger/internal/db"
	"authledger/internal/health"
	"authledger/internal/session/ledger"
	userrepo "authledger/internal/user/repository"
)

type stores struct {
	users    userrepo.Repository
	sessions ledger.Ledger
	closers  []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores builds the user directory and session ledger selected by USER_STORE and
// SESSION_STORE and registers their backends with checker.
func openStores(ctx context.Context, cfg *config.Config, checker *health.Checker, logger *zap.Logger) (*stores, error) {
	st := &stores{}

	var pool *pgxpool.Pool
	if cfg.NeedsDatabase() {
		p, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		pool = p
		st.closers = append(st.closers, pool.Close)
		checker.Add("postgres", pool)
	}

	switch cfg.UserStore {
	case config.StorePostgres:
		st.users = userrepo.NewPostgresRepository(pool)
	default:
		st.users = userrepo.NewMemoryRepository()
	}

	switch cfg.SessionStore {
	case config.StorePostgres:
		st.sessions = ledger.NewPostgresLedger(pool)
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			st.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		checker.Add("redis", health.PingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
		st.sessions = ledger.NewRedisLedger(client)
	default:
		st.sessions = ledger.NewMemoryLedger()
	}

	logger.Info("stores ready",
		zap.String("user_store", cfg.UserStore),
		zap.String("session_store", cfg.SessionStore))
	return st, nil
}
