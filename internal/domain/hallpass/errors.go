package hallpass

import "errors"

// Sentinel kinds for hall pass errors.
var (
	ErrInvalidPass = errors.New("invalid hall pass")
	// ErrDuplicateCode is matched by Store.Add errors when the pass code is
	// already taken.
	ErrDuplicateCode = errors.New("duplicate pass code")
)
