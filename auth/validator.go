package auth

import (
	"errors"
	"fmt"

	apperrors "chat-relay/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Registration carries the raw inputs of a first-time registration.
// Validated before any expensive cryptographic operation.
type Registration struct {
	Username   string `validate:"required,min=2,max=32,printascii"`
	Credential string `validate:"required,min=8,max=72"`
}

func ValidateRegistration(req Registration) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		switch fieldErrors[0].Field() {
		case "Username":
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidUsername, fieldErrors[0])
		default:
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidCredential, fieldErrors[0])
		}
	}
	return err
}
