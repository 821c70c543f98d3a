package modules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/config"
	"travelguide.io/guestbook/internal/domain"
	"travelguide.io/guestbook/internal/governance/audit"
	"travelguide.io/guestbook/internal/infrastructure"
	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/pkg/worker"
	"travelguide.io/guestbook/internal/ratelimit"
	"travelguide.io/guestbook/internal/repository"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Pool        *pgxpool.Pool
	Pools       *worker.Pools
	Events      *domain.EventDispatcher
	Submissions *repository.SubmissionRepository
	AuditLogger *audit.Logger

	// RateStore is the rate window backend selected by ratelimit.backend.
	RateStore ratelimit.Store
	// PostgresRateStore is set only for the postgres backend; it owns the cleanup job.
	PostgresRateStore *ratelimit.PostgresStore
	redisRateStore    *ratelimit.RedisStore
}

// NewInfrastructure initializes the database, worker pools and shared services.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		AuditPoolSize:   cfg.Worker.AuditPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}
	if err := prometheus.Register(pools); err != nil {
		logger.Warn("worker pool metrics not registered", zap.Error(err))
	}

	infra := &Infrastructure{
		Config:      cfg,
		DB:          db,
		Pool:        db.Pool,
		Pools:       pools,
		Events:      domain.NewEventDispatcher(),
		Submissions: repository.NewSubmissionRepository(db.Pool),
		AuditLogger: audit.NewLogger(repository.NewAuditLogRepository(db.Pool)),
	}
	if err := infra.initRateStore(ctx); err != nil {
		infra.Close()
		return nil, err
	}
	return infra, nil
}

func (i *Infrastructure) initRateStore(ctx context.Context) error {
	cfg := i.Config
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendMemory:
		i.RateStore = ratelimit.NewMemStore(cfg.RateLimit.MemoryCapacity, ratelimit.LongestWindow(ratelimit.DefaultPolicies))
	case config.RateLimitBackendRedis:
		store, err := ratelimit.NewRedisStore(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("init redis rate store: %w", err)
		}
		i.redisRateStore = store
		i.RateStore = store
	default:
		store := ratelimit.NewPostgresStore(i.Pool)
		i.PostgresRateStore = store
		i.RateStore = store
	}
	logger.Info("Rate window store initialized", zap.String("backend", cfg.RateLimit.Backend))
	return nil
}

// HealthChecks returns the readiness checks for the external dependencies in use.
func (i *Infrastructure) HealthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": i.Pool.Ping,
	}
	if i.redisRateStore != nil {
		checks["redis"] = i.redisRateStore.Ping
	}
	return checks
}

// InitRiver initializes the River client on top of a prepared worker registry.
func (i *Infrastructure) InitRiver(workers *river.Workers, periodic []*river.PeriodicJob) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, periodic, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	return nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		prometheus.Unregister(i.Pools)
		i.Pools.Shutdown()
	}
	if i.redisRateStore != nil {
		if err := i.redisRateStore.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
