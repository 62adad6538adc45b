package editor

import (
	"errors"
	"fmt"

	"github.com/rpggio/wellnest/internal/domain/record"
)

var (
	// ErrTitleRequired indicates a save or publish with a blank title.
	ErrTitleRequired = record.ErrTitleRequired
	// ErrUnknownField indicates an edit of a field the form doesn't have.
	ErrUnknownField = fmt.Errorf("%w: unknown field", record.ErrValidation)
	// ErrRecordGone indicates an operation after the record was deleted.
	ErrRecordGone = errors.New("record deleted")
	// ErrInvalidTransition indicates an operation the current phase doesn't allow.
	ErrInvalidTransition = errors.New("invalid editor transition")
)
