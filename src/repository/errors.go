package repository

import "errors"

// Sentinel errors returned by catalog stores. The HTTP boundary matches them
// with [errors.Is] and translates each into a status code.
var (
	// ErrValidation is returned when a required field is missing or blank.
	ErrValidation = errors.New("missing or blank required field")

	// ErrAuth is returned when a supplied password does not match the hash
	// stored for an existing user.
	ErrAuth = errors.New("invalid credentials")

	// ErrNotFound is returned when a user, image or category that the
	// operation targets does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStorage is returned when a backend read or write fails for reasons
	// other than the above.
	ErrStorage = errors.New("storage failure")
)
