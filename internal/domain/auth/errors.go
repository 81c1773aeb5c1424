package auth

import (
	"errors"
	"fmt"
)

var (
	ErrConflict           = errors.New("conflict")
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrUsernameTaken      = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrRefreshNotFound    = errors.New("refresh token not found")
	ErrNoRefresh          = errors.New("no refresh token")
	ErrUnauthorized       = errors.New("unauthorized")
)

// ValidationError rejects a single input field. Reason is the failed rule
// (required, emailish, min, max).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
