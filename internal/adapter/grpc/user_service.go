package grpc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"user-management-service/api/openapi"
	domain "user-management-service/internal/domain/user"
	"user-management-service/internal/usecase/user"
	apperrors "user-management-service/pkg/errors"
	"user-management-service/pkg/logger"
)

// UserService implements the gRPC user service on top of the use case.
type UserService struct {
	uc  user.UsersAPI
	log *zap.Logger
}

var _ UserServiceServer = (*UserService)(nil)

// NewUserService creates a new gRPC user service
func NewUserService(uc user.UsersAPI, log *zap.Logger) *UserService {
	return &UserService{uc: uc, log: log}
}

// ListUsers handles gRPC ListUsers request
func (s *UserService) ListUsers(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	resp, err := s.uc.ListUsers(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}

	values := make([]*structpb.Value, len(resp.Users))
	for i, u := range resp.Users {
		values[i] = structpb.NewStructValue(UserToStruct(u))
	}
	return &structpb.ListValue{Values: values}, nil
}

// CreateUser handles gRPC CreateUser request.
// Only the name and email fields are read; an id is ignored.
func (s *UserService) CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, typeViolations := structToCreateRequest(in)
	if len(typeViolations) > 0 {
		violations := mergeViolations(typeViolations, domain.Validate(domain.User{Name: req.Name, Email: req.Email}))
		logger.WithContext(ctx, s.log).Warn("malformed create user message", zap.Any("violations", violations))
		return nil, apperrors.NewValidationError(violations...).GRPCStatus().Err()
	}

	resp, err := s.uc.CreateUser(ctx, req)
	if err != nil {
		return nil, toStatusError(err)
	}

	return UserToStruct(resp.User), nil
}

// GetOpenAPI returns the service contract as YAML.
func (s *UserService) GetOpenAPI(_ context.Context, _ *emptypb.Empty) (*httpbody.HttpBody, error) {
	return &httpbody.HttpBody{
		ContentType: "application/yaml",
		Data:        openapi.YAML(),
	}, nil
}

// UserToStruct renders a user in the shape of the OpenAPI User schema.
func UserToStruct(u user.User) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"id":    structpb.NewNumberValue(float64(u.ID)),
			"name":  structpb.NewStringValue(u.Name),
			"email": structpb.NewStringValue(u.Email),
		},
	}
}

// StructToUser reads a user rendered by UserToStruct.
func StructToUser(s *structpb.Struct) user.User {
	fields := s.GetFields()
	return user.User{
		ID:    int64(fields["id"].GetNumberValue()),
		Name:  fields["name"].GetStringValue(),
		Email: fields["email"].GetStringValue(),
	}
}

func structToCreateRequest(in *structpb.Struct) (user.CreateUserRequest, []apperrors.FieldViolation) {
	var (
		req        user.CreateUserRequest
		violations []apperrors.FieldViolation
	)

	fields := in.GetFields()
	for _, name := range []string{"name", "email"} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		str, isString := v.GetKind().(*structpb.Value_StringValue)
		if !isString {
			if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
				continue
			}
			violations = append(violations, apperrors.FieldViolation{
				Field:   name,
				Rule:    "type",
				Message: fmt.Sprintf("%s must be a string", name),
			})
			continue
		}
		if name == "name" {
			req.Name = str.StringValue
		} else {
			req.Email = str.StringValue
		}
	}

	return req, violations
}

// mergeViolations reports a type violation in place of any format violation
// for the same field, keeping name before email.
func mergeViolations(typeViolations, formatViolations []apperrors.FieldViolation) []apperrors.FieldViolation {
	mistyped := make(map[string]bool, len(typeViolations))
	for _, v := range typeViolations {
		mistyped[v.Field] = true
	}

	merged := make([]apperrors.FieldViolation, 0, len(typeViolations)+len(formatViolations))
	for _, field := range []string{"name", "email"} {
		source := formatViolations
		if mistyped[field] {
			source = typeViolations
		}
		for _, v := range source {
			if v.Field == field {
				merged = append(merged, v)
			}
		}
	}
	return merged
}

// toStatusError converts use case errors into gRPC status errors.
// Errors without a status of their own never leak their text.
func toStatusError(err error) error {
	if st, ok := status.FromError(err); ok {
		return st.Err()
	}
	return status.Error(codes.Internal, "internal server error")
}
