// Package app wires configuration into the ledger's storage, locking and service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hostelhub/fee-ledger/internal/cascade"
	"github.com/hostelhub/fee-ledger/internal/config"
	"github.com/hostelhub/fee-ledger/internal/repository"
	"github.com/hostelhub/fee-ledger/internal/repository/memory"
	"github.com/hostelhub/fee-ledger/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockRetryInterval = 50 * time.Millisecond

// App holds the process-wide dependencies. DB and Redis are nil when not configured.
type App struct {
	DB     *sqlx.DB
	Redis  *redis.Client
	Ledger *service.LedgerService
}

// New connects the configured backends and builds the ledger service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}

	var (
		store    repository.Store
		students repository.StudentDirectory
		hostels  repository.HostelDirectory
	)

	switch cfg.Database.Driver {
	case config.DriverMemory:
		if cfg.IsProduction() {
			return nil, fmt.Errorf("the %q database driver is not allowed in production", config.DriverMemory)
		}
		logger.Warn("using in-memory storage, data is lost on exit")
		mem := memory.New()
		store, students, hostels = mem, mem, mem
	default:
		db, err := initDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.DB = db
		store = repository.NewPostgresStore(db)
		students = repository.NewStudentDirectory(db)
		hostels = repository.NewHostelDirectory(db)
	}

	var locker cascade.Locker = cascade.NewKeyedMutex()
	if cfg.Redis.Enabled {
		a.Redis = initRedis(cfg)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		locker = cascade.NewRedisLocker(a.Redis, cfg.Redis.LockTTL, lockRetryInterval)
		logger.Info("using redis student locks", zap.String("addr", cfg.Redis.Addr()))
	}

	a.Ledger = service.NewLedgerService(store, students, hostels, cfg, logger.Named("ledger"), service.WithLocker(locker))
	return a, nil
}

// Close releases the backend connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
