package record

import "strings"

// ValidateFields validates fields about to be persisted.
func ValidateFields(f Fields) error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// ValidateStatus validates a requested status.
func ValidateStatus(s Status) error {
	if !s.Valid() {
		return ErrInvalidStatus
	}
	return nil
}
