package identity

import (
	"time"

	"github.com/rpggio/wellnest/internal/domain/auth"
)

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// Token purposes carried in the purpose claim.
const (
	PurposeAccess   = "access"
	PurposeRefresh  = "refresh"
	PurposeRecovery = "recovery"
)

// User is an account known to the identity provider
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	Provider        string
	ProviderSubject string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Session is an issued pair of bearer tokens
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	User         User
}

// ToAuth converts the session to the application's view of it.
func (s *Session) ToAuth() *auth.ProviderSession {
	if s == nil {
		return nil
	}
	return &auth.ProviderSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresAt:    s.ExpiresAt,
		User: auth.Identity{
			ID:        s.User.ID,
			Email:     s.User.Email,
			Provider:  s.User.Provider,
			CreatedAt: s.User.CreatedAt,
		},
	}
}

// ExternalUser is the account reported by an OAuth provider
type ExternalUser struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
}
