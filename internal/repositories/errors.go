package repositories

import "errors"

// Sentinel errors the store implementations translate driver errors into, so
// service code never inspects driver-specific failures.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrAlreadyRegistered is the identity provider's specific
	// email-already-in-use condition.
	ErrAlreadyRegistered = errors.New("email already registered")

	// ErrCodeInvalid covers bad, expired and already-consumed one-time codes.
	ErrCodeInvalid = errors.New("verification code invalid or expired")

	// ErrBadCredentials is returned for any failed password check.
	ErrBadCredentials = errors.New("invalid credentials")
)
