package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates a wrong email or password.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailTaken indicates sign-up with a registered email.
	ErrEmailTaken = errors.New("user already registered")
	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = fmt.Errorf("password should be at least %d characters", MinPasswordLength)
	// ErrInvalidToken indicates a bearer token that fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a token past its expiry.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrInvalidToken)
	// ErrTokenRevoked indicates a token revoked by sign-out.
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", ErrInvalidToken)
	// ErrNoSession indicates an operation that needs a signed-in client.
	ErrNoSession = errors.New("auth session missing")
	// ErrUnsupportedProvider indicates an unknown OAuth provider.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrInvalidState indicates an unknown, expired or reused OAuth state.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrExchange indicates the OAuth code exchange or profile fetch failed.
	ErrExchange = errors.New("oauth exchange failed")
	// ErrEmailUnverified rejects provider accounts whose email the provider
	// has not verified.
	ErrEmailUnverified = fmt.Errorf("%w: provider email not verified", ErrExchange)
)
