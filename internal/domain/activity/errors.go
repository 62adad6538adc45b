package activity

import "errors"

var (
	// ErrInvalidInput indicates a malformed activity entry or query.
	ErrInvalidInput = errors.New("invalid activity input")
)
