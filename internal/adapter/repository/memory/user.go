package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	domain "user-management-service/internal/domain/user"
	"user-management-service/internal/usecase/user"
	apperrors "user-management-service/pkg/errors"
)

// UserRepository is a process-local user registry.
// A single RWMutex covers the users slice, the email index and the ID counter,
// so the uniqueness check, ID assignment and append in Create form one critical section.
type UserRepository struct {
	mu      sync.RWMutex
	users   []domain.User
	byEmail map[string]struct{}
	lastID  int64
	log     *zap.Logger
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates an empty in-memory registry.
func NewUserRepository(log *zap.Logger) *UserRepository {
	return &UserRepository{
		byEmail: make(map[string]struct{}),
		log:     log,
	}
}

// List returns a copy of all stored users in insertion order.
func (r *UserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, len(r.users))
	copy(users, r.users)
	return users, nil
}

// Create stores u with the next ID unless its email is already registered.
// Emails are compared exactly; no case folding or trimming is applied.
func (r *UserRepository) Create(_ context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		r.log.Debug("duplicate email rejected", zap.String("email", u.Email))
		return domain.User{}, apperrors.NewAlreadyExistsError("user", "email already exists")
	}

	r.lastID++
	u.ID = r.lastID
	r.users = append(r.users, u)
	r.byEmail[u.Email] = struct{}{}

	r.log.Debug("user stored", zap.Int64("id", u.ID))
	return u, nil
}
