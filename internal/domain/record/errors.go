package record

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates input rejected before any store call.
	ErrValidation = errors.New("validation failed")
	// ErrPermission indicates an operation needing an identity ran without one.
	ErrPermission = errors.New("permission denied: no authenticated identity")
	// ErrRemote indicates the row store rejected or failed a call.
	ErrRemote = errors.New("remote store error")

	// ErrRecordNotFound indicates the record doesn't exist or is not visible.
	ErrRecordNotFound = fmt.Errorf("%w: record not found", ErrRemote)
	// ErrTitleRequired indicates a blank title.
	ErrTitleRequired = fmt.Errorf("%w: title required", ErrValidation)
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrValidation)
	// ErrMissingID indicates an operation on a record without an id.
	ErrMissingID = fmt.Errorf("%w: record id required", ErrValidation)
)

func remoteErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRemote, op, err)
}
