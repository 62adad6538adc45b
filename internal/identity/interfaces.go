package identity

import (
	"context"
	"time"
)

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByProviderSubject(ctx context.Context, provider, subject string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// TokenRepository tracks revoked token ids.
type TokenRepository interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Mailer delivers account mail.
type Mailer interface {
	SendPasswordRecovery(ctx context.Context, to, link string) error
}
