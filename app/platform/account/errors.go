package account

import "errors"

var (
	// ErrDuplicateEmail is returned when a registration or profile update
	// targets an email already on file.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned for any credential check against a locked
	// account, regardless of password correctness.
	ErrAccountLocked = errors.New("account locked")

	// ErrInvalidResetToken covers absent, mismatched and expired reset tokens.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")

	ErrWrongPassword = errors.New("wrong current password")

	ErrInvalidRole = errors.New("invalid role")

	ErrNotFound = errors.New("account not found")
)
