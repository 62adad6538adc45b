package auth

import (
	"errors"
	"fmt"

	"github.com/rpggio/wellnest/internal/domain/record"
)

var (
	// ErrNotAuthenticated indicates an authoring operation without an identity.
	ErrNotAuthenticated = fmt.Errorf("%w: sign in required", record.ErrPermission)
	// ErrSessionPending indicates the startup session resolution has not finished.
	ErrSessionPending = fmt.Errorf("%w: session not yet resolved", record.ErrPermission)
	// ErrRemote indicates the identity provider failed a call.
	ErrRemote = errors.New("identity provider error")
	// ErrSessionResolution indicates the startup session lookup failed.
	ErrSessionResolution = errors.New("session resolution failed")
	// ErrInvalidAddress indicates a return address that cannot be parsed.
	ErrInvalidAddress = fmt.Errorf("%w: invalid return address", record.ErrValidation)
	// ErrMissingCredentials indicates a blank email or password.
	ErrMissingCredentials = fmt.Errorf("%w: email and password required", record.ErrValidation)
)
