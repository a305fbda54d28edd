package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Common application errors
var (
	ErrAlreadyExists = NewAlreadyExistsError("resource", "")
	ErrInvalidInput  = NewValidationError()
	ErrInternal      = NewInternalError("internal server error", nil)
)

// FieldViolation describes a single field that failed format validation.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError represents a validation failure with field-level details
type ValidationError struct {
	Violations []FieldViolation
}

// NewValidationError creates a new validation error
func NewValidationError(violations ...FieldViolation) *ValidationError {
	return &ValidationError{Violations: violations}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		messages[i] = v.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, ", "))
}

// Is reports any *ValidationError as a match so callers can use errors.Is.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// GRPCStatus returns an InvalidArgument status with a BadRequest detail per field.
func (e *ValidationError) GRPCStatus() *status.Status {
	st := status.New(codes.InvalidArgument, e.Error())
	if len(e.Violations) == 0 {
		return st
	}

	br := &errdetails.BadRequest{}
	for _, v := range e.Violations {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       v.Field,
			Reason:      v.Rule,
			Description: v.Message,
		})
	}

	detailed, err := st.WithDetails(br)
	if err != nil {
		return st
	}
	return detailed
}

// AlreadyExistsError represents a resource already exists error
type AlreadyExistsError struct {
	Resource string
	Message  string
}

// NewAlreadyExistsError creates a new already exists error
func NewAlreadyExistsError(resource, message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *AlreadyExistsError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// Is reports any *AlreadyExistsError as a match so callers can use errors.Is.
func (e *AlreadyExistsError) Is(target error) bool {
	_, ok := target.(*AlreadyExistsError)
	return ok
}

// GRPCStatus returns the gRPC status for this error
func (e *AlreadyExistsError) GRPCStatus() *status.Status {
	return status.New(codes.AlreadyExists, e.Error())
}

// InternalError represents an internal server error with context
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// GRPCStatus returns the gRPC status for this error.
// The wrapped cause stays server-side.
func (e *InternalError) GRPCStatus() *status.Status {
	return status.New(codes.Internal, e.Message)
}

// GRPCStatuser interface for errors that can provide gRPC status
type GRPCStatuser interface {
	GRPCStatus() *status.Status
}

// ViolationsFromStatus extracts the field violations carried in a status's BadRequest details.
func ViolationsFromStatus(st *status.Status) []FieldViolation {
	var violations []FieldViolation
	for _, detail := range st.Details() {
		br, ok := detail.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		for _, fv := range br.GetFieldViolations() {
			violations = append(violations, FieldViolation{
				Field:   fv.GetField(),
				Rule:    fv.GetReason(),
				Message: fv.GetDescription(),
			})
		}
	}
	return violations
}

// Error kinds reported in REST error bodies.
const (
	KindValidation    = "validation_error"
	KindAlreadyExists = "already_exists"
	KindInternal      = "internal_error"

	// InternalMessage replaces the cause of internal errors in client responses.
	InternalMessage = "An internal error occurred"
)

// Response is the JSON error body of the REST APIs.
type Response struct {
	Error      string           `json:"error"`
	Message    string           `json:"message,omitempty"`
	Violations []FieldViolation `json:"violations,omitempty"`
}

// NewResponse maps err onto an HTTP status and the error body sent to clients.
func NewResponse(err error) (int, Response) {
	var (
		validationErr *ValidationError
		existsErr     *AlreadyExistsError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, Response{
			Error:      KindValidation,
			Message:    validationErr.Error(),
			Violations: validationErr.Violations,
		}
	case errors.As(err, &existsErr):
		return http.StatusConflict, Response{
			Error:   KindAlreadyExists,
			Message: existsErr.Error(),
		}
	default:
		return http.StatusInternalServerError, Response{
			Error:   KindInternal,
			Message: InternalMessage,
		}
	}
}

// HTTPStatus maps an application error onto an HTTP status code.
func HTTPStatus(err error) int {
	var (
		validationErr *ValidationError
		existsErr     *AlreadyExistsError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &existsErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
