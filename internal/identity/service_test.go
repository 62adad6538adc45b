package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/identity"
	"github.com/rpggio/wellnest/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_SignUpSignIn(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.svc.SignUp(ctx, " Maya@Example.com ", "secret1")
	require.NoError(t, err)
	require.Equal(t, "maya@example.com", sess.User.Email)
	require.Equal(t, identity.ProviderEmail, sess.User.Provider)
	require.NotEmpty(t, sess.AccessToken)
	require.NotEmpty(t, sess.RefreshToken)
	require.Equal(t, "bearer", sess.TokenType)

	_, err = f.svc.SignUp(ctx, "maya@example.com", "secret1")
	require.ErrorIs(t, err, identity.ErrEmailTaken)

	_, err = f.svc.SignUp(ctx, "short@example.com", "123")
	require.ErrorIs(t, err, identity.ErrWeakPassword)

	_, err = f.svc.SignUp(ctx, "not-an-email", "secret1")
	require.ErrorIs(t, err, identity.ErrInvalidEmail)

	again, err := f.svc.SignIn(ctx, "MAYA@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, sess.User.ID, again.User.ID)

	_, err = f.svc.SignIn(ctx, "maya@example.com", "wrong")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, err = f.svc.SignIn(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestService_SignOutRevokes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.svc.SignUp(ctx, "maya@example.com", "secret1")
	require.NoError(t, err)

	userID, err := f.svc.ResolveIdentity(ctx, sess.AccessToken)
	require.NoError(t, err)
	require.Equal(t, sess.User.ID, userID)

	require.NoError(t, f.svc.SignOut(ctx, sess.AccessToken, sess.RefreshToken, "", "garbage"))

	_, err = f.svc.ResolveIdentity(ctx, sess.AccessToken)
	require.ErrorIs(t, err, identity.ErrTokenRevoked)
	_, err = f.svc.Refresh(ctx, sess.RefreshToken)
	require.ErrorIs(t, err, identity.ErrTokenRevoked)
}

func TestService_RefreshRotates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.svc.SignUp(ctx, "maya@example.com", "secret1")
	require.NoError(t, err)

	next, err := f.svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, sess.RefreshToken, next.RefreshToken)

	_, err = f.svc.Refresh(ctx, sess.RefreshToken)
	require.ErrorIs(t, err, identity.ErrTokenRevoked)

	_, err = f.svc.Refresh(ctx, next.AccessToken)
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestService_PasswordRecovery(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, "maya@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestRecovery(ctx, "nobody@example.com"))
	require.Empty(t, f.mailer.Sent())

	require.NoError(t, f.svc.RequestRecovery(ctx, "maya@example.com"))
	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "maya@example.com", sent[0].To)
	require.Contains(t, sent[0].Link, "http://localhost:8080/reset-password#")

	tokens, cleaned, found, err := auth.ExtractTokens(sent[0].Link)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "http://localhost:8080/reset-password", cleaned)
	require.Equal(t, identity.PurposeRecovery, tokens.Type)

	recovery, err := f.svc.SessionFor(ctx, tokens)
	require.NoError(t, err)
	require.Equal(t, "maya@example.com", recovery.User.Email)

	// A recovery token is not an access token for the HTTP API.
	_, err = f.svc.ResolveIdentity(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, identity.ErrInvalidToken)

	require.NoError(t, f.svc.UpdatePassword(ctx, tokens.AccessToken, "n3w-secret"))
	_, err = f.svc.SignIn(ctx, "maya@example.com", "secret1")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, err = f.svc.SignIn(ctx, "maya@example.com", "n3w-secret")
	require.NoError(t, err)

	// The recovery link works once.
	err = f.svc.UpdatePassword(ctx, tokens.AccessToken, "attacker1")
	require.ErrorIs(t, err, identity.ErrTokenRevoked)
	_, err = f.svc.SignIn(ctx, "maya@example.com", "attacker1")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, err = f.svc.SessionFor(ctx, tokens)
	require.ErrorIs(t, err, identity.ErrTokenRevoked)
}

func TestService_AccessTokenUpdatesPasswordRepeatedly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.svc.SignUp(ctx, "lee@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdatePassword(ctx, sess.AccessToken, "secret2"))
	require.NoError(t, f.svc.UpdatePassword(ctx, sess.AccessToken, "secret3"))
	_, err = f.svc.ResolveIdentity(ctx, sess.AccessToken)
	require.NoError(t, err)
}

func TestService_WithMockRepositories(t *testing.T) {
	ctx := context.Background()
	users := &mocks.UserRepository{}
	tokens := &mocks.TokenRepository{}
	boom := errors.New("db down")

	users.On("GetByEmail", ctx, "maya@example.com").Return(nil, boom)
	tokens.On("PurgeExpired", ctx, mock.Anything).Return(int64(3), nil)

	svc := identity.NewService(users, tokens, identity.NewTokenIssuer(testSecret, testIssuer, testAudience), nil, nil, identity.Config{}, nil)

	_, err := svc.SignIn(ctx, "maya@example.com", "secret1")
	require.ErrorIs(t, err, boom)

	purged, err := svc.PurgeRevoked(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), purged)

	_, err = svc.AuthorizeURL("google")
	require.ErrorIs(t, err, identity.ErrUnsupportedProvider)
	require.Empty(t, svc.Providers())
}
