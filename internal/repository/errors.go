// Package repository holds the storage-level errors shared by every store
// implementation. Domain services translate them at their boundary.
package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint fails
	ErrDuplicate = errors.New("duplicate entity")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
