package user

import "context"

// UsersAPI is the contract declared by the OpenAPI document for the /users resource.
type UsersAPI interface {
	ListUsers(ctx context.Context) (*ListUsersResponse, error)
	CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error)
}
