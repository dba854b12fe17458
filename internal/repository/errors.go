package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateToken is returned when trying to create a token with an existing hash or a second token for the same user
	ErrDuplicateToken = errors.New("token already exists")

	// ErrDuplicateAuthLink is returned when a provider link already exists for the user or the provider subject
	ErrDuplicateAuthLink = errors.New("authentication link already exists")
)
