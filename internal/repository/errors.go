package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates the email column unique constraint was violated.
	ErrDuplicateEmail = errors.New("repository: email already exists")
	// ErrDuplicateUsername indicates the username column unique constraint was violated.
	ErrDuplicateUsername = errors.New("repository: username already exists")
)
