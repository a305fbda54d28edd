package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-management-service/internal/adapter/db/gormdb"
	"user-management-service/internal/adapter/repository/cached"
	"user-management-service/internal/adapter/repository/memory"
	"user-management-service/internal/adapter/repository/redisstore"
	"user-management-service/internal/config"
	"user-management-service/internal/usecase/user"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func newContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()
	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
	})
	return c
}

func createAndList(t *testing.T, c *Container) {
	t.Helper()
	ctx := context.Background()

	resp, err := c.UserUC.CreateUser(ctx, user.CreateUserRequest{Name: "John Doe", Email: "john@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.User.ID)

	list, err := c.UserUC.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Users, 1)
}

func TestNewContainer_Memory(t *testing.T) {
	c := newContainer(t, testConfig(t))

	assert.IsType(t, &memory.UserRepository{}, c.Repository)
	assert.Nil(t, c.DB)
	assert.Nil(t, c.RedisClient)
	assert.NotNil(t, c.GinHandler)
	assert.NotNil(t, c.GRPCService)
	createAndList(t, c)
}

func TestNewContainer_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = config.DriverSQLite
	cfg.DB.SQLitePath = filepath.Join(t.TempDir(), "users.db")

	c := newContainer(t, cfg)

	assert.IsType(t, &gormdb.UserRepository{}, c.Repository)
	assert.NotNil(t, c.DB)
	createAndList(t, c)
}

func TestNewContainer_RedisWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Storage.Driver = config.DriverRedis
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mr.Port()
	cfg.Cache.Enabled = true

	c := newContainer(t, cfg)

	assert.IsType(t, &cached.CachedUserRepository{}, c.Repository)
	createAndList(t, c)
	assert.True(t, mr.Exists("users:list:version"))
}

func TestNewContainer_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Storage.Driver = config.DriverRedis
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mr.Port()

	c := newContainer(t, cfg)

	assert.IsType(t, &redisstore.UserRepository{}, c.Repository)
	createAndList(t, c)
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "mongo"

	_, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))

	assert.ErrorContains(t, err, "config validation failed")
}

func TestNewContainer_CacheOverMemoryRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = config.DriverMemory
	cfg.Cache.Enabled = true

	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))

	assert.Nil(t, c)
	assert.ErrorContains(t, err, "memory driver")
}
