package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-management-service/internal/domain/user"
)

// UserListCache stores list snapshots keyed by a version counter.
// Writers bump the version after every successful create, so entries cached
// under an older version are never read again and simply expire.
type UserListCache interface {
	// Version returns the current list version (0 when none was recorded).
	Version(ctx context.Context) (int64, error)

	// Get returns the snapshot cached for version, or nil on a cache miss.
	Get(ctx context.Context, version int64) ([]domain.User, error)

	// Set stores the snapshot for version with the configured TTL.
	Set(ctx context.Context, version int64, users []domain.User) error

	// Bump advances the version, invalidating every cached snapshot.
	Bump(ctx context.Context) (int64, error)
}

// RedisUserListCache implements UserListCache using Redis as the backing store.
type RedisUserListCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserListCache creates a new Redis-backed list cache.
func NewRedisUserListCache(client *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *RedisUserListCache {
	if prefix == "" {
		prefix = "users"
	}
	return &RedisUserListCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    log,
	}
}

func (c *RedisUserListCache) versionKey() string {
	return c.prefix + ":list:version"
}

// snapshotKey generates a Redis key for a list version.
func (c *RedisUserListCache) snapshotKey(version int64) string {
	return fmt.Sprintf("%s:list:v%d", c.prefix, version)
}

// Version reads the current list version.
func (c *RedisUserListCache) Version(ctx context.Context) (int64, error) {
	raw, err := c.client.Get(ctx, c.versionKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.log.Error("failed to read list version", zap.Error(err))
		return 0, err
	}

	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt list version %q: %w", raw, err)
	}
	return version, nil
}

// Get retrieves a list snapshot from Redis.
func (c *RedisUserListCache) Get(ctx context.Context, version int64) ([]domain.User, error) {
	data, err := c.client.Get(ctx, c.snapshotKey(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Cache miss - not an error
		c.log.Debug("cache miss", zap.Int64("version", version))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.Int64("version", version), zap.Error(err))
		return nil, err
	}

	users := []domain.User{}
	if err := json.Unmarshal(data, &users); err != nil {
		c.log.Error("failed to unmarshal cached users", zap.Int64("version", version), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.Int64("version", version), zap.Int("count", len(users)))
	return users, nil
}

// Set stores a list snapshot in Redis with TTL.
func (c *RedisUserListCache) Set(ctx context.Context, version int64, users []domain.User) error {
	if users == nil {
		users = []domain.User{}
	}

	data, err := json.Marshal(users)
	if err != nil {
		c.log.Error("failed to marshal users for cache", zap.Int64("version", version), zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, c.snapshotKey(version), data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set cache", zap.Int64("version", version), zap.Error(err))
		return err
	}

	c.log.Debug("cached users", zap.Int64("version", version), zap.Int("count", len(users)), zap.Duration("ttl", c.ttl))
	return nil
}

// Bump increments the list version.
func (c *RedisUserListCache) Bump(ctx context.Context) (int64, error) {
	version, err := c.client.Incr(ctx, c.versionKey()).Result()
	if err != nil {
		c.log.Error("failed to bump list version", zap.Error(err))
		return 0, err
	}

	c.log.Debug("list version bumped", zap.Int64("version", version))
	return version, nil
}
