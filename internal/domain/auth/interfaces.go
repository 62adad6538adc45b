package auth

import "context"

// Provider is the identity API: password and external sign-in, recovery,
// and an asynchronous stream of session changes.
type Provider interface {
	GetSession(ctx context.Context) (*ProviderSession, error)
	SignUp(ctx context.Context, email, password string) (*ProviderSession, error)
	SignInWithPassword(ctx context.Context, email, password string) (*ProviderSession, error)
	SignOut(ctx context.Context) error
	AuthorizeURL(ctx context.Context, provider string) (string, error)
	SessionFromTokens(ctx context.Context, tokens Tokens) (*ProviderSession, error)
	ResetPasswordForEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Preferences is device-local storage.
type Preferences interface {
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	DeletePreference(ctx context.Context, key string) error
}
