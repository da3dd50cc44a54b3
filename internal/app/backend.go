package app

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/calendar_sync/internal/backend"
	"github.com/Freeeeeet/calendar_sync/internal/config"
	"github.com/Freeeeeet/calendar_sync/internal/repository"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NewBackend собирает бэкенд календаря по конфигу.
// cleanup закрывает открытые соединения и всегда не nil
func NewBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (backend.Backend, func(), error) {
	var (
		b        backend.Backend
		closers  []func()
		calendar = cfg.GoogleCalendarID
	)

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Backend {
	case config.BackendGoogle:
		g, err := backend.NewGoogleBackend(ctx, cfg.GoogleServiceAccountFile, cfg.GoogleCalendarID, logger)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init google backend: %w", err)
		}
		b = g

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect to database: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := pool.Ping(ctx); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("ping database: %w", err)
		}

		migrator, err := NewMigrator(pool, cfg.MigrationsDir, logger)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		err = migrator.Run(ctx)
		_ = migrator.Close()
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}

		b = backend.NewPostgresBackend(repository.NewEventRepository(pool), calendar, cfg.PublicBaseURL, logger)
		logger.Info("Using Postgres calendar store")

	case config.BackendMemory:
		b = backend.NewMemoryBackend(cfg.PublicBaseURL)
		logger.Warn("Using in-memory calendar, appointments are lost on restart")

	default:
		return nil, cleanup, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, func() { _ = client.Close() })

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis is unreachable, cache will be bypassed until it recovers", zap.Error(err))
		}

		b = backend.NewCachedBackend(b, client, calendar, cfg.CacheTTL, logger)
		logger.Info("Calendar cache enabled", zap.String("redis", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	return b, cleanup, nil
}
