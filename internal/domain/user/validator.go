package user

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "user-management-service/pkg/errors"
)

// Format constraints shared with the OpenAPI contract.
const (
	MaxNameLength = 100
	NamePattern   = `^[a-zA-Z0-9\s.-]+$`
	EmailPattern  = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
)

// Violation rule codes.
const (
	RuleRequired = "required"
	RuleMax      = "max"
	RulePattern  = "pattern"
)

var (
	nameRegexp  = regexp.MustCompile(NamePattern)
	emailRegexp = regexp.MustCompile(EmailPattern)

	validate = newValidator()
)

// candidate carries the validation rules for the writable fields of a User.
type candidate struct {
	Name  string `json:"name" validate:"required,max=100,user_name"`
	Email string `json:"email" validate:"required,user_email"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names so violations line up with the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "user_name", func(fl validator.FieldLevel) bool {
		return nameRegexp.MatchString(fl.Field().String())
	})
	mustRegister(v, "user_email", func(fl validator.FieldLevel) bool {
		return emailRegexp.MatchString(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate checks the name and email of a candidate user.
// It returns one violation per failing field, or nil when the candidate is well-formed.
// The ID field is ignored.
func Validate(u User) []apperrors.FieldViolation {
	err := validate.Struct(candidate{Name: u.Name, Email: u.Email})
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []apperrors.FieldViolation{{Rule: "invalid", Message: err.Error()}}
	}

	violations := make([]apperrors.FieldViolation, 0, len(validationErrors))
	for _, e := range validationErrors {
		violations = append(violations, toViolation(e))
	}
	return violations
}

// toViolation converts a validator.FieldError into a human-readable violation.
func toViolation(e validator.FieldError) apperrors.FieldViolation {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return apperrors.FieldViolation{Field: field, Rule: RuleRequired, Message: fmt.Sprintf("%s is required", field)}
	case "max":
		return apperrors.FieldViolation{Field: field, Rule: RuleMax, Message: fmt.Sprintf("%s must be at most %s characters", field, e.Param())}
	case "user_name":
		return apperrors.FieldViolation{Field: field, Rule: RulePattern, Message: fmt.Sprintf("%s may only contain letters, digits, whitespace, periods and hyphens", field)}
	case "user_email":
		return apperrors.FieldViolation{Field: field, Rule: RulePattern, Message: fmt.Sprintf("%s must be a valid email address", field)}
	default:
		return apperrors.FieldViolation{Field: field, Rule: e.Tag(), Message: fmt.Sprintf("%s is invalid", field)}
	}
}
