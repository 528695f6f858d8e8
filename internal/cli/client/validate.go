package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// registerCredentials mirrors the backend's registration constraints
type registerCredentials struct {
	Username string `validate:"required,min=3"`
	Password string `validate:"required,min=6,maxbytes=72"`
}

// loginCredentials only rejects empty input; the backend judges the rest
type loginCredentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// bcrypt only looks at the first 72 bytes, so the limit is in bytes
	v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})

	return v
}

// normalizeUsername trims and lower-cases a username the way the backend does
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateCredentials(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrInvalidCredentials, field)
	case "min":
		return fmt.Errorf("%w: %s must be at least %s characters", ErrInvalidCredentials, field, fe.Param())
	case "maxbytes":
		return fmt.Errorf("%w: %s must be at most %s bytes", ErrInvalidCredentials, field, fe.Param())
	default:
		return fmt.Errorf("%w: %s is invalid", ErrInvalidCredentials, field)
	}
}
