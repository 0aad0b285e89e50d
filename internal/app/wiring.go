package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/periodclose/internal/close"
	"github.com/odyssey-erp/periodclose/internal/ledger"
	"github.com/odyssey-erp/periodclose/internal/observability"
	"github.com/odyssey-erp/periodclose/internal/platform/cache"
	"github.com/odyssey-erp/periodclose/internal/platform/db"
	"github.com/odyssey-erp/periodclose/internal/rbac"
	"github.com/odyssey-erp/periodclose/internal/shared"
)

// Runtime holds the shared backends and the period closing service.
type Runtime struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Roles   *rbac.Service
	Ledger  *ledger.Store
	Service *close.Service
	Metrics *observability.Metrics
}

// NewRuntime connects Postgres and Redis and wires the closing service.
func NewRuntime(ctx context.Context, cfg *Config, service string, logger *slog.Logger) (*Runtime, error) {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions(service))
	if err != nil {
		return nil, err
	}
	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		pool.Close()
		return nil, err
	}

	codec, err := close.NewSnapshotCodec(cfg.AuditCompressThreshold)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	roles := rbac.NewService(rbac.NewPGStore(pool), redisClient, cfg.RoleCacheTTL, logger)
	store := ledger.NewStore(pool)
	repo := close.NewRepository(pool, codec)
	svc := close.NewService(close.Dependencies{
		Repo:     repo,
		Ledger:   store,
		Poster:   store,
		Roles:    roles,
		Locker:   shared.NewRedisLocker(redisClient, cfg.LockTTL),
		Logger:   logger,
		Observer: metrics,
		Retry:    cfg.RetryPolicy(),
		Checks:   close.DefaultChecks(),
	})
	return &Runtime{
		Pool:    pool,
		Redis:   redisClient,
		Roles:   roles,
		Ledger:  store,
		Service: svc,
		Metrics: metrics,
	}, nil
}

// Close releases backend connections.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var err error
	if r.Redis != nil {
		if closeErr := r.Redis.Close(); closeErr != nil {
			err = fmt.Errorf("app: close redis: %w", closeErr)
		}
	}
	if r.Pool != nil {
		r.Pool.Close()
	}
	return err
}
