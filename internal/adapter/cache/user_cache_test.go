package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "user-management-service/internal/domain/user"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func TestRedisUserListCache_Version(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserListCache(client, "users", 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	version, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	bumped, err := cache.Bump(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bumped)

	version, err = cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestRedisUserListCache_Version_Corrupt(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserListCache(client, "users", 5*time.Minute, zaptest.NewLogger(t))

	require.NoError(t, mr.Set("users:list:version", "not-a-number"))

	_, err := cache.Version(context.Background())
	assert.Error(t, err)
}

func TestRedisUserListCache_Set_Success(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserListCache(client, "users", 5*time.Minute, zaptest.NewLogger(t))

	users := []domain.User{
		{ID: 1, Name: "John Doe", Email: "john@example.com"},
		{ID: 2, Name: "Jane", Email: "jane@example.com"},
	}

	err := cache.Set(context.Background(), 3, users)
	require.NoError(t, err)

	// Verify data is in Redis
	data, err := client.Get(context.Background(), "users:list:v3").Bytes()
	require.NoError(t, err)

	var cached []domain.User
	require.NoError(t, json.Unmarshal(data, &cached))
	assert.Equal(t, users, cached)
}

func TestRedisUserListCache_Get(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserListCache(client, "users", 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		cached, err := cache.Get(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("empty snapshot is a hit", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, 0, nil))

		cached, err := cache.Get(ctx, 0)
		require.NoError(t, err)
		assert.NotNil(t, cached)
		assert.Empty(t, cached)
	})

	t.Run("hit", func(t *testing.T) {
		users := []domain.User{{ID: 1, Name: "John Doe", Email: "john@example.com"}}
		require.NoError(t, cache.Set(ctx, 1, users))

		cached, err := cache.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, users, cached)
	})
}

func TestRedisUserListCache_TTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserListCache(client, "users", 2*time.Second, zaptest.NewLogger(t))

	err := cache.Set(context.Background(), 1, []domain.User{{ID: 1, Name: "John Doe", Email: "john@example.com"}})
	require.NoError(t, err)

	// Fast forward time in miniredis
	mr.FastForward(3 * time.Second)

	cached, err := cache.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
