package store

import "errors"

var (
	// ErrUserNotFound is returned when a user lookup by id finds nothing.
	ErrUserNotFound = errors.New("store: user not found")

	// ErrProfileNotFound is returned when a profile update targets a user
	// without a profile row.
	ErrProfileNotFound = errors.New("store: profile not found")
)
