package domain

import (
	"errors"
	"fmt"
)

// Authentication error taxonomy. Messages are language-neutral; the boundary layer decides
// how to present them.
var (
	ErrNotFound      = errors.New("not found")
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrTokenNotFound = fmt.Errorf("token %w", ErrNotFound)

	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidCredentials covers bad passwords, inactive accounts during login and
	// token/user mismatches alike, so callers cannot tell which one happened.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountDisabled = errors.New("account disabled")
	ErrAccountLocked   = errors.New("account locked")

	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")

	ErrIdentityVerificationFailed = errors.New("identity verification failed")
	ErrUnsupportedAuthMethod      = errors.New("unsupported authentication method")
	ErrInvalidArgument            = errors.New("invalid argument")
	ErrNotImplemented             = errors.New("not implemented")
)
