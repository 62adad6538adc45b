package auth

import "time"

// Identity is the authenticated user as seen by the application
type Identity struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Provider   string    `json:"provider"`
	RememberMe bool      `json:"remember_me"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProviderSession is a bearer session issued by the identity provider
type ProviderSession struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	User         Identity
}

// EventType names a session change announced by the identity provider
type EventType string

const (
	EventSignedIn         EventType = "SIGNED_IN"
	EventSignedOut        EventType = "SIGNED_OUT"
	EventPasswordRecovery EventType = "PASSWORD_RECOVERY"
	EventTokenRefreshed   EventType = "TOKEN_REFRESHED"
)

// Event is one entry of the provider's session-change stream
type Event struct {
	Type    EventType
	Session *ProviderSession
}

// State is a snapshot of the auth session.
//
// IsLoading is true until the startup resolution completes; while it is true
// the user is unknown, not logged out. SessionLoading covers an in-flight
// sign-in, sign-up, sign-out or provider redirect.
type State struct {
	Identity       *Identity `json:"identity,omitempty"`
	IsLoading      bool      `json:"is_loading"`
	SessionLoading bool      `json:"session_loading"`
}

// Authenticated reports whether an identity is known.
func (s State) Authenticated() bool {
	return !s.IsLoading && s.Identity != nil
}

// Tokens are the credentials an external provider appends to the return address
type Tokens struct {
	AccessToken          string
	RefreshToken         string
	TokenType            string
	ExpiresIn            int
	ProviderToken        string
	ProviderRefreshToken string
	// Type is "recovery" for password-recovery links.
	Type string
}
