package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-management-service/cmd/api/infrastructure"
	"user-management-service/internal/adapter/cache"
	"user-management-service/internal/adapter/db/gormdb"
	ginhandler "user-management-service/internal/adapter/gin/handler"
	grpcadapter "user-management-service/internal/adapter/grpc"
	"user-management-service/internal/adapter/repository/cached"
	"user-management-service/internal/adapter/repository/memory"
	"user-management-service/internal/adapter/repository/redisstore"
	"user-management-service/internal/config"
	"user-management-service/internal/usecase/user"
	redisclient "user-management-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client
	Repository  user.Repository
	UserUC      *user.Usecase
	GRPCService *grpcadapter.UserService
	GinHandler  *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (_ *Container, err error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{
		Config: cfg,
		Logger: l,
	}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if cfg.UsesSQL() {
		db, err := infrastructure.NewDatabase(cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
	}

	if cfg.UsesRedis() {
		rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		c.RedisClient = rdb
	}

	repo, err := c.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	// Wrap the registry with the list cache
	if cfg.Cache.Enabled {
		listCache := cache.NewRedisUserListCache(
			c.RedisClient.Client,
			cfg.Redis.KeyPrefix,
			time.Duration(cfg.Cache.TTLSeconds)*time.Second,
			l,
		)
		repo = cached.NewCachedUserRepository(repo, listCache, l)
	}
	c.Repository = repo

	// Initialize use case
	c.UserUC = user.New(repo, l)

	// Initialize transport adapters
	c.GRPCService = grpcadapter.NewUserService(c.UserUC, l)
	c.GinHandler = ginhandler.NewUserHandler(c.UserUC, l)

	l.Info("container initialized",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	return c, nil
}

// newRepository builds the registry selected by STORAGE_DRIVER.
func (c *Container) newRepository(ctx context.Context) (user.Repository, error) {
	switch c.Config.Storage.Driver {
	case config.DriverMemory:
		return memory.NewUserRepository(c.Logger), nil
	case config.DriverRedis:
		return redisstore.NewUserRepository(c.RedisClient.Client, c.Config.Redis.KeyPrefix, c.Logger), nil
	case config.DriverPostgres, config.DriverMySQL, config.DriverSQLite:
		repo := gormdb.NewUserRepository(c.DB, c.Logger)
		if c.Config.DB.AutoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Config.Storage.Driver)
	}
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
		c.RedisClient = nil
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		c.DB = nil
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("container close errors: %w", err)
	}

	return nil
}
