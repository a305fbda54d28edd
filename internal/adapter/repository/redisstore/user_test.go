package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "user-management-service/internal/domain/user"
	"user-management-service/internal/usecase/user"
	"user-management-service/internal/usecase/user/usertest"
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

func TestUserRepository_Contract(t *testing.T) {
	usertest.RunRepositorySuite(t, func(t *testing.T) user.Repository {
		client, _ := setupTestRedis(t)
		return NewUserRepository(client, "users", zaptest.NewLogger(t))
	})
}

func TestUserRepository_KeyLayout(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewUserRepository(client, "test", zaptest.NewLogger(t))

	_, err := repo.Create(context.Background(), domain.User{Name: "John Doe", Email: "a@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "1", mr.HGet("test:emails", "a@example.com"))
	assert.Equal(t, "John Doe", mr.HGet("test:record:1", "name"))

	ids, err := mr.List("test:ids")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
}

func TestUserRepository_DefaultPrefix(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewUserRepository(client, "", zaptest.NewLogger(t))

	_, err := repo.Create(context.Background(), domain.User{Name: "John Doe", Email: "a@example.com"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("users:seq"))
}

func TestUserRepository_ClientClosed(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewUserRepository(client, "users", zaptest.NewLogger(t))
	require.NoError(t, client.Close())

	_, err := repo.Create(context.Background(), domain.User{Name: "John Doe", Email: "a@example.com"})
	assert.Error(t, err)

	_, err = repo.List(context.Background())
	assert.Error(t, err)
}
