package cached

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-management-service/internal/adapter/cache"
	domain "user-management-service/internal/domain/user"
	"user-management-service/internal/usecase/user"
)

// CachedUserRepository implements user.Repository with list caching.
// It wraps a registry and a versioned snapshot cache; Create stays on the
// wrapped registry so its atomicity guarantees are unchanged.
type CachedUserRepository struct {
	repo  user.Repository
	cache cache.UserListCache
	log   *zap.Logger
	group singleflight.Group
}

var _ user.Repository = (*CachedUserRepository)(nil)

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(repo user.Repository, c cache.UserListCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		repo:  repo,
		cache: c,
		log:   log,
	}
}

// Create delegates to the wrapped registry and bumps the list version on success.
func (r *CachedUserRepository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	created, err := r.repo.Create(ctx, u)
	if err != nil {
		return domain.User{}, err
	}

	// Invalidate list snapshots after a successful create
	if _, err := r.cache.Bump(ctx); err != nil {
		r.log.Warn("failed to invalidate list cache after create", zap.Int64("id", created.ID), zap.Error(err))
	}

	return created, nil
}

// List returns users using the cache-aside pattern.
// Snapshots are keyed by the version read before loading, so a snapshot can only
// be newer than its key, never older.
func (r *CachedUserRepository) List(ctx context.Context) ([]domain.User, error) {
	version, err := r.cache.Version(ctx)
	if err != nil {
		r.log.Warn("cache version error, falling back to registry", zap.Error(err))
		return r.repo.List(ctx)
	}

	cached, err := r.cache.Get(ctx, version)
	if err != nil {
		r.log.Warn("cache get error, falling back to registry", zap.Int64("version", version), zap.Error(err))
	} else if cached != nil {
		r.log.Debug("users retrieved from cache", zap.Int64("version", version))
		return cached, nil
	}

	// Cache miss - use single-flight to prevent stampede
	key := fmt.Sprintf("users:list:v%d", version)
	result, err, _ := r.group.Do(key, func() (any, error) {
		users, err := r.repo.List(ctx)
		if err != nil {
			return nil, err
		}

		if err := r.cache.Set(ctx, version, users); err != nil {
			r.log.Warn("failed to cache users", zap.Int64("version", version), zap.Error(err))
		}

		return users, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers sharing a flight must not share the slice
	shared := result.([]domain.User)
	users := make([]domain.User, len(shared))
	copy(users, shared)
	return users, nil
}
