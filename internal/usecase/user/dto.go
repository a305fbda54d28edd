package user

// CreateUserRequest represents the request payload for creating a new user.
// Any identifier sent by the client is not part of the request.
type CreateUserRequest struct {
	Name  string
	Email string
}

// CreateUserResponse represents the response payload after creating a user.
type CreateUserResponse struct {
	User User
}

// ListUsersResponse represents the response payload for user listing.
type ListUsersResponse struct {
	Users []User
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	ID    int64
	Name  string
	Email string
}
