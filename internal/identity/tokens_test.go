package identity_test

import (
	"testing"
	"time"

	"github.com/rpggio/wellnest/internal/identity"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := identity.NewTokenIssuer(testSecret, testIssuer, testAudience)
	user := &identity.User{ID: "u1", Email: "maya@example.com"}

	token, claims, err := issuer.Issue(user, identity.PurposeAccess, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	parsed, err := issuer.Parse(token, identity.PurposeAccess)
	require.NoError(t, err)
	require.Equal(t, "u1", parsed.Subject)
	require.Equal(t, "maya@example.com", parsed.Email)
	require.Equal(t, claims.ID, parsed.ID)
}

func TestTokenIssuer_Rejections(t *testing.T) {
	issuer := identity.NewTokenIssuer(testSecret, testIssuer, testAudience)
	user := &identity.User{ID: "u1", Email: "maya@example.com"}

	refresh, _, err := issuer.Issue(user, identity.PurposeRefresh, time.Hour)
	require.NoError(t, err)
	_, err = issuer.Parse(refresh, identity.PurposeAccess)
	require.ErrorIs(t, err, identity.ErrInvalidToken)

	expired, _, err := issuer.Issue(user, identity.PurposeAccess, -time.Minute)
	require.NoError(t, err)
	_, err = issuer.Parse(expired, identity.PurposeAccess)
	require.ErrorIs(t, err, identity.ErrTokenExpired)

	other := identity.NewTokenIssuer("other-secret", testIssuer, testAudience)
	forged, _, err := other.Issue(user, identity.PurposeAccess, time.Hour)
	require.NoError(t, err)
	_, err = issuer.Parse(forged, identity.PurposeAccess)
	require.ErrorIs(t, err, identity.ErrInvalidToken)

	foreign := identity.NewTokenIssuer(testSecret, testIssuer, "another-app")
	wrongAudience, _, err := foreign.Issue(user, identity.PurposeAccess, time.Hour)
	require.NoError(t, err)
	_, err = issuer.Parse(wrongAudience, identity.PurposeAccess)
	require.ErrorIs(t, err, identity.ErrInvalidToken)

	_, err = issuer.Parse("not-a-jwt", identity.PurposeAccess)
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}
