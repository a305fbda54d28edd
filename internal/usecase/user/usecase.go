package user

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domain "user-management-service/internal/domain/user"
	apperrors "user-management-service/pkg/errors"
	"user-management-service/pkg/logger"
)

// Repository defines the interface for the user registry.
// Implementations own the stored users and must make Create atomic:
// the email uniqueness check, identifier assignment and append happen as one unit.
type Repository interface {
	// List returns a snapshot of all stored users in insertion order.
	// The returned slice is never shared with the implementation.
	List(ctx context.Context) ([]domain.User, error)

	// Create stores the candidate and returns it with its assigned ID.
	// It returns an *errors.AlreadyExistsError when the email is already stored.
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

// Usecase implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Usecase struct {
	repo Repository  // Registry for user data
	log  *zap.Logger // Logger for structured logging
}

var _ UsersAPI = (*Usecase)(nil)

// New creates a new instance of Usecase with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Usecase {
	return &Usecase{repo: r, log: log}
}

// CreateUser validates the candidate and registers it.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	candidate := domain.User{Name: in.Name, Email: in.Email}
	if violations := domain.Validate(candidate); len(violations) > 0 {
		log.Warn("validate failed", zap.Any("violations", violations))
		return nil, apperrors.NewValidationError(violations...)
	}

	created, err := uc.repo.Create(ctx, candidate)
	if err != nil {
		var existsErr *apperrors.AlreadyExistsError
		if errors.As(err, &existsErr) {
			log.Warn("email already exists", zap.String("email", in.Email))
			return nil, existsErr
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to create user", err)
	}

	log.Info("user created", zap.Int64("id", created.ID))
	return &CreateUserResponse{User: toDTO(created)}, nil
}

// ListUsers returns every registered user in insertion order.
func (uc *Usecase) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	domainUsers, err := uc.repo.List(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to list users", err)
	}

	users := make([]User, len(domainUsers))
	for i, du := range domainUsers {
		users[i] = toDTO(du)
	}

	log.Debug("listed users", zap.Int("count", len(users)))
	return &ListUsersResponse{Users: users}, nil
}

func toDTO(u domain.User) User {
	return User{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}
