// Package usertest provides a conformance suite for user.Repository implementations.
package usertest

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	domain "user-management-service/internal/domain/user"
	"user-management-service/internal/usecase/user"
	apperrors "user-management-service/pkg/errors"
)

// Factory returns an empty repository for a single subtest.
type Factory func(t *testing.T) user.Repository

// RunRepositorySuite checks the registry contract against repositories built by newRepo.
func RunRepositorySuite(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("EmptyList", func(t *testing.T) {
		repo := newRepo(t)

		users, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("SequentialIDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Create(ctx, domain.User{Name: "John Doe", Email: "a@example.com"})
		require.NoError(t, err)
		second, err := repo.Create(ctx, domain.User{Name: "Jane", Email: "b@example.com"})
		require.NoError(t, err)

		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)

		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.User{
			{ID: 1, Name: "John Doe", Email: "a@example.com"},
			{ID: 2, Name: "Jane", Email: "b@example.com"},
		}, users)
	})

	t.Run("IgnoresCallerID", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.Create(context.Background(), domain.User{ID: 99, Name: "John Doe", Email: "a@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
	})

	t.Run("DuplicateEmailConflict", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, domain.User{Name: "John Doe", Email: "a@example.com"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, domain.User{Name: "Someone Else", Email: "a@example.com"})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "John Doe", users[0].Name)

		next, err := repo.Create(ctx, domain.User{Name: "Jane", Email: "b@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), next.ID, "a rejected create must not consume an id")
	})

	// Emails are compared exactly as stored: differently cased addresses are distinct users.
	t.Run("EmailComparisonIsCaseSensitive", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, domain.User{Name: "John Doe", Email: "john@example.com"})
		require.NoError(t, err)
		_, err = repo.Create(ctx, domain.User{Name: "John Doe", Email: "John@Example.com"})
		require.NoError(t, err)

		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("SnapshotIndependence", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, domain.User{Name: "John Doe", Email: "a@example.com"})
		require.NoError(t, err)

		snapshot, err := repo.List(ctx)
		require.NoError(t, err)
		retained := append([]domain.User(nil), snapshot...)

		_, err = repo.Create(ctx, domain.User{Name: "Jane", Email: "b@example.com"})
		require.NoError(t, err)
		assert.Equal(t, retained, snapshot)

		snapshot[0].Name = "Mutated"
		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "John Doe", users[0].Name)
	})

	t.Run("ConcurrentSameEmail", func(t *testing.T) {
		repo := newRepo(t)
		const n = 32

		var successes, conflicts atomic.Int64
		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				_, err := repo.Create(context.Background(), domain.User{
					Name:  fmt.Sprintf("User %d", i),
					Email: "same@example.com",
				})
				switch {
				case err == nil:
					successes.Add(1)
				case apperrors.HTTPStatus(err) == 409:
					conflicts.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, int64(1), successes.Load())
		assert.Equal(t, int64(n-1), conflicts.Load())

		users, err := repo.List(context.Background())
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "same@example.com", users[0].Email)
	})

	t.Run("ConcurrentDistinctEmails", func(t *testing.T) {
		repo := newRepo(t)
		const n = 32

		ids := make([]int64, n)
		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				created, err := repo.Create(context.Background(), domain.User{
					Name:  fmt.Sprintf("User %d", i),
					Email: fmt.Sprintf("user%d@example.com", i),
				})
				if err != nil {
					return err
				}
				ids[i] = created.ID
				return nil
			})
		}
		require.NoError(t, g.Wait())

		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		for i, id := range ids {
			assert.Equal(t, int64(i+1), id)
		}

		users, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, users, n)
	})
}
