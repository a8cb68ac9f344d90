package repositories

import (
	"context"

	"reviewsync/internal/core/ports"
	"reviewsync/internal/infrastructure/repositories/memory"
	redisrepo "reviewsync/internal/infrastructure/repositories/redis"
	"reviewsync/internal/infrastructure/repositories/sqlite"
	"reviewsync/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories for the configured storage backend,
// falling back to memory when the backend cannot be reached.
type RepositoryFactory struct {
	backend     string
	redisClient *redis.Client
	sqliteDB    *sqlite.DB
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		backend: cfg.Storage.Backend,
		logger:  logger,
	}

	switch cfg.Storage.Backend {
	case "redis":
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.backend = "memory"
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	case "sqlite":
		db, err := sqlite.New(cfg.SQLite.Path)
		if err == nil {
			err = db.RunMigrations()
		}
		if err != nil {
			logger.Warnw("failed to open SQLite store, falling back to memory repositories",
				"path", cfg.SQLite.Path,
				"error", err,
			)
			factory.backend = "memory"
		} else {
			factory.sqliteDB = db
			logger.Infow("using SQLite repositories", "path", cfg.SQLite.Path)
		}
	}

	if factory.backend == "memory" {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

func (f *RepositoryFactory) CreateSessionRepository() ports.SessionRepository {
	switch {
	case f.redisClient != nil:
		return redisrepo.NewRedisSessionRepository(f.redisClient)
	case f.sqliteDB != nil:
		return sqlite.NewSQLiteSessionRepository(f.sqliteDB)
	default:
		return memory.NewMemorySessionRepository()
	}
}

func (f *RepositoryFactory) CreateActionRepository() ports.ActionLogRepository {
	switch {
	case f.redisClient != nil:
		return redisrepo.NewRedisActionRepository(f.redisClient)
	case f.sqliteDB != nil:
		return sqlite.NewSQLiteActionRepository(f.sqliteDB)
	default:
		return memory.NewMemoryActionRepository()
	}
}

func (f *RepositoryFactory) CreateStrokeRepository() ports.StrokeRepository {
	switch {
	case f.redisClient != nil:
		return redisrepo.NewRedisStrokeRepository(f.redisClient)
	case f.sqliteDB != nil:
		return sqlite.NewSQLiteStrokeRepository(f.sqliteDB)
	default:
		return memory.NewMemoryStrokeRepository()
	}
}

// Close releases the backing store connection if one is open.
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	if f.sqliteDB != nil {
		return f.sqliteDB.Close()
	}
	return nil
}

// HealthCheck checks the backing store connection health.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	if f.sqliteDB != nil {
		return f.sqliteDB.PingContext(ctx)
	}
	return nil
}
