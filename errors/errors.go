package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownUser          = fmt.Errorf("unknown user")
	ErrRegistrationDenied   = fmt.Errorf("registration denied")
	ErrAuthenticationFailed = fmt.Errorf("authentication failed")
	ErrNotStarted           = fmt.Errorf("client not started")
	ErrUserAlreadyExists    = fmt.Errorf("user already exists")
	ErrInvalidUsername      = fmt.Errorf("invalid username")
	ErrInvalidCredential    = fmt.Errorf("invalid credential")
	ErrTokenGeneration      = fmt.Errorf("token generation failed")
)

// Kind maps a domain error to the stable kind string sent over the wire.
// Unrecognized errors collapse to "Internal" so storage details never leak
// to clients.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownUser):
		return "UnknownUser"
	case errors.Is(err, ErrRegistrationDenied):
		return "RegistrationDenied"
	case errors.Is(err, ErrAuthenticationFailed):
		return "AuthenticationFailed"
	case errors.Is(err, ErrUserAlreadyExists):
		return "UserAlreadyExists"
	case errors.Is(err, ErrInvalidUsername):
		return "InvalidUsername"
	case errors.Is(err, ErrInvalidCredential):
		return "InvalidCredential"
	case errors.Is(err, ErrTokenGeneration):
		return "TokenGeneration"
	default:
		return "Internal"
	}
}
