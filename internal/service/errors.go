package service

import "errors"

var (
	// ErrValidation indicates malformed bill input. The caller must fix
	// the input before retrying.
	ErrValidation = errors.New("invalid bill input")

	// ErrPermissionDenied indicates the acting member lacks the required
	// role or ownership. Never retried, always surfaced.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrMutationInFlight indicates a mutation for the same bill has not
	// yet resolved. Guards against duplicate financial operations
	// reaching the store out of order.
	ErrMutationInFlight = errors.New("mutation already in flight for bill")
)
