package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/domain/editor"
	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/identity"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to
// nil so callers can fall back to the raw error.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNoEditor):
		return &APIError{Code: "NO_OPEN_EDITOR", Message: "no editor is open", RecoveryHint: "Call open_editor first"}
	case errors.Is(err, editor.ErrRecordGone):
		return &APIError{Code: "RECORD_GONE", Message: "the session was deleted", RecoveryHint: "Open a new editor"}
	case errors.Is(err, editor.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: "not allowed in the editor's current state", RecoveryHint: "Check phase in the editor view"}
	case errors.Is(err, record.ErrTitleRequired):
		return &APIError{Code: "TITLE_REQUIRED", Message: "a title is required", RecoveryHint: "Set the title field first"}
	case errors.Is(err, editor.ErrUnknownField):
		return &APIError{Code: "UNKNOWN_FIELD", Message: "unknown field", RecoveryHint: "Use title, tags or json_file_url"}
	case errors.Is(err, auth.ErrSessionPending):
		return &APIError{Code: "SESSION_PENDING", Message: "session is still being resolved", RecoveryHint: "Retry shortly"}
	case errors.Is(err, record.ErrPermission):
		return &APIError{Code: "NOT_AUTHENTICATED", Message: "sign in required", RecoveryHint: "Call sign_in or sign_up"}
	case errors.Is(err, identity.ErrInvalidCredentials):
		return &APIError{Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	case errors.Is(err, identity.ErrEmailTaken):
		return &APIError{Code: "EMAIL_TAKEN", Message: "an account with this email already exists", RecoveryHint: "Call sign_in instead"}
	case errors.Is(err, identity.ErrWeakPassword):
		return &APIError{Code: "WEAK_PASSWORD", Message: fmt.Sprintf("password must be at least %d characters", identity.MinPasswordLength)}
	case errors.Is(err, identity.ErrInvalidEmail):
		return &APIError{Code: "INVALID_EMAIL", Message: "invalid email address"}
	case errors.Is(err, identity.ErrUnsupportedProvider):
		return &APIError{Code: "UNSUPPORTED_PROVIDER", Message: "sign-in provider is not configured"}
	case errors.Is(err, identity.ErrInvalidToken):
		return &APIError{Code: "INVALID_TOKEN", Message: "sign-in link is invalid or expired", RecoveryHint: "Start the sign-in again"}
	case errors.Is(err, record.ErrRecordNotFound):
		return &APIError{Code: "RECORD_NOT_FOUND", Message: "session not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, record.ErrValidation):
		return &APIError{Code: "VALIDATION_FAILED", Message: err.Error()}
	case errors.Is(err, record.ErrRemote), errors.Is(err, auth.ErrRemote):
		return &APIError{Code: "REMOTE_ERROR", Message: err.Error(), RecoveryHint: "Retry the operation"}
	default:
		return nil
	}
}

// toolError returns the API error for err, or err itself when unmapped.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
