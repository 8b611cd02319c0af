package owner

import "errors"

// Domain errors for the owner package.
var (
	// ErrOwnerNotFound is returned when no owner matches the lookup.
	ErrOwnerNotFound = errors.New("owner: not found")

	// ErrOwnerExists is returned when creating an owner whose email is
	// already registered.
	ErrOwnerExists = errors.New("owner: email already registered")

	// ErrInvalidEmail is returned when an email address is empty after
	// normalisation.
	ErrInvalidEmail = errors.New("owner: invalid email")
)
