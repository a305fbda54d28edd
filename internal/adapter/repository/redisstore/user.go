package redisstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-management-service/internal/domain/user"
	"user-management-service/internal/usecase/user"
	apperrors "user-management-service/pkg/errors"
)

// createScript checks the email index, allocates the next ID and appends the
// record in one server-side step.
//
//	KEYS[1] email -> id hash
//	KEYS[2] id sequence
//	KEYS[3] list of ids in insertion order
//	ARGV[1] email, ARGV[2] name, ARGV[3] record key prefix
var createScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	return 0
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', ARGV[3] .. id, 'name', ARGV[2], 'email', ARGV[1])
redis.call('HSET', KEYS[1], ARGV[1], id)
redis.call('RPUSH', KEYS[3], id)
return id
`)

// UserRepository is a user registry stored in Redis.
type UserRepository struct {
	client       *redis.Client
	emailsKey    string
	seqKey       string
	idsKey       string
	recordPrefix string
	log          *zap.Logger
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a Redis-backed registry whose keys start with prefix.
func NewUserRepository(client *redis.Client, prefix string, log *zap.Logger) *UserRepository {
	if prefix == "" {
		prefix = "users"
	}
	return &UserRepository{
		client:       client,
		emailsKey:    prefix + ":emails",
		seqKey:       prefix + ":seq",
		idsKey:       prefix + ":ids",
		recordPrefix: prefix + ":record:",
		log:          log,
	}
}

// Create stores u unless its email is already registered.
func (r *UserRepository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	id, err := createScript.Run(ctx, r.client,
		[]string{r.emailsKey, r.seqKey, r.idsKey},
		u.Email, u.Name, r.recordPrefix,
	).Int64()
	if err != nil {
		r.log.Error("failed to create user in redis", zap.String("email", u.Email), zap.Error(err))
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	if id == 0 {
		r.log.Debug("duplicate email rejected", zap.String("email", u.Email))
		return domain.User{}, apperrors.NewAlreadyExistsError("user", "email already exists")
	}

	u.ID = id
	r.log.Info("user created in redis", zap.Int64("id", id))
	return u, nil
}

// List returns all users in insertion order.
// Records are written before their ID is appended, so every listed ID resolves.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	ids, err := r.client.LRange(ctx, r.idsKey, 0, -1).Result()
	if err != nil {
		r.log.Error("failed to list user ids from redis", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]domain.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, r.recordPrefix+id, "name", "email")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("failed to load user records from redis", zap.Int("count", len(ids)), zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	for i, id := range ids {
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt user id %q: %w", id, err)
		}
		fields := cmds[i].Val()
		name, _ := fields[0].(string)
		email, _ := fields[1].(string)
		users = append(users, domain.User{ID: parsed, Name: name, Email: email})
	}

	return users, nil
}
