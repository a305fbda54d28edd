package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	domain "user-management-service/internal/domain/user"
	"user-management-service/internal/usecase/user"
	apperrors "user-management-service/pkg/errors"
)

// UserRepository implements the user registry on top of GORM.
// It works with any dialect the application opens (PostgreSQL, MySQL, SQLite).
type UserRepository struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *gorm.DB, log *zap.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID    int64               `gorm:"primaryKey;autoIncrement"`               // Unique identifier with auto-increment
	Name  string              `gorm:"size:100;not null"`                      // User's display name (required)
	Email CaseSensitiveString `gorm:"size:320;not null;uniqueIndex:ux_email"` // User's unique email address (required, unique)
}

// CaseSensitiveString is a string column compared byte for byte.
// PostgreSQL and SQLite already compare text that way; MySQL's default
// utf8mb4 collation folds case, so the column is declared with utf8mb4_bin.
type CaseSensitiveString string

// GormDBDataType implements migrator.GormDataTypeInterface.
func (CaseSensitiveString) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() != "mysql" {
		return ""
	}
	size := 255
	if field != nil && field.Size > 0 {
		size = field.Size
	}
	return fmt.Sprintf("varchar(%d) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin", size)
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// Migrate creates or updates the users table.
func (r *UserRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// Create inserts a new user unless the email is already taken.
// The lookup and insert share a transaction; the unique index on email settles
// any race between concurrent transactions.
func (r *UserRepository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	model := UserSchema{
		Name:  u.Name,
		Email: CaseSensitiveString(u.Email),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserSchema{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if count > 0 {
			return apperrors.NewAlreadyExistsError("user", "email already exists")
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		var existsErr *apperrors.AlreadyExistsError
		if errors.As(err, &existsErr) {
			r.log.Debug("duplicate email rejected", zap.String("email", u.Email))
			return domain.User{}, existsErr
		}
		if isUniqueViolation(err) {
			r.log.Debug("duplicate email rejected by unique index", zap.String("email", u.Email))
			return domain.User{}, apperrors.NewAlreadyExistsError("user", "email already exists")
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return toDomain(model), nil
}

// List retrieves all users ordered by ID, which matches insertion order.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]domain.User, len(models))
	for i, model := range models {
		users[i] = toDomain(model)
	}

	return users, nil
}

func toDomain(model UserSchema) domain.User {
	return domain.User{
		ID:    model.ID,
		Name:  model.Name,
		Email: string(model.Email),
	}
}

// isUniqueViolation reports whether err came from the email unique index.
// Dialects without error translation are matched on their messages.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
