package contract

import "errors"

// Failure classes for operation handlers. Every handler error wraps one of
// these, so callers can classify without parsing messages while the message
// itself stays descriptive and stable.
var (
	ErrValidation        = errors.New("invalid command")
	ErrUnauthorized      = errors.New("permission denied")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("precondition failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
