package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/identity"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T) *httptest.Server {
	t.Helper()
	return newFakeGoogleWithProfile(t, map[string]any{
		"id":             "google-123",
		"email":          "Maya@Example.com",
		"verified_email": true,
	})
}

func newFakeGoogleWithProfile(t *testing.T, profile map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "google-access",
			"refresh_token": "google-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-access" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testGoogleProvider(srv *httptest.Server) identity.OAuthProvider {
	p := identity.GoogleProvider("client-id", "client-secret", "http://localhost:8080/auth/google/callback")
	p.Config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/auth",
		TokenURL: srv.URL + "/token",
	}
	p.UserInfoURL = srv.URL + "/userinfo"
	return p
}

func TestOAuth_AuthorizeURL(t *testing.T) {
	srv := newFakeGoogle(t)
	o := identity.NewOAuth(time.Minute, testGoogleProvider(srv))

	require.Equal(t, []string{"google"}, o.Providers())

	address, err := o.AuthorizeURL("google")
	require.NoError(t, err)
	u, err := url.Parse(address)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "offline", q.Get("access_type"))
	require.Equal(t, "consent", q.Get("prompt"))
	require.Equal(t, "client-id", q.Get("client_id"))
	require.NotEmpty(t, q.Get("state"))

	_, err = o.AuthorizeURL("github")
	require.ErrorIs(t, err, identity.ErrUnsupportedProvider)
}

func TestService_HandleCallback(t *testing.T) {
	srv := newFakeGoogle(t)
	o := identity.NewOAuth(time.Minute, testGoogleProvider(srv))
	f := newFixture(t, o)
	ctx := context.Background()

	address, err := f.svc.AuthorizeURL("google")
	require.NoError(t, err)
	u, err := url.Parse(address)
	require.NoError(t, err)
	state := u.Query().Get("state")

	_, err = f.svc.HandleCallback(ctx, "google", "forged-state", "good-code")
	require.ErrorIs(t, err, identity.ErrInvalidState)

	returnTo, err := f.svc.HandleCallback(ctx, "google", state, "good-code")
	require.NoError(t, err)

	tokens, cleaned, found, err := auth.ExtractTokens(returnTo)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "http://localhost:8080/", cleaned)

	sess, err := f.svc.SessionFor(ctx, tokens)
	require.NoError(t, err)
	require.Equal(t, "maya@example.com", sess.User.Email)
	require.Equal(t, identity.ProviderGoogle, sess.User.Provider)

	// State nonces are single use.
	_, err = f.svc.HandleCallback(ctx, "google", state, "good-code")
	require.ErrorIs(t, err, identity.ErrInvalidState)

	// A second sign-in links to the same account.
	address, err = f.svc.AuthorizeURL("google")
	require.NoError(t, err)
	u, _ = url.Parse(address)
	returnTo, err = f.svc.HandleCallback(ctx, "google", u.Query().Get("state"), "good-code")
	require.NoError(t, err)
	tokens, _, _, err = auth.ExtractTokens(returnTo)
	require.NoError(t, err)
	again, err := f.svc.SessionFor(ctx, tokens)
	require.NoError(t, err)
	require.Equal(t, sess.User.ID, again.User.ID)
}

func TestService_HandleCallbackExchangeFailure(t *testing.T) {
	srv := newFakeGoogle(t)
	o := identity.NewOAuth(time.Minute, testGoogleProvider(srv))
	f := newFixture(t, o)

	address, err := f.svc.AuthorizeURL("google")
	require.NoError(t, err)
	u, _ := url.Parse(address)

	_, err = f.svc.HandleCallback(context.Background(), "google", u.Query().Get("state"), "bad-code")
	require.ErrorIs(t, err, identity.ErrExchange)
}

func TestService_HandleCallbackUnverifiedEmail(t *testing.T) {
	srv := newFakeGoogleWithProfile(t, map[string]any{
		"id":             "google-999",
		"email":          "maya@example.com",
		"verified_email": false,
	})
	o := identity.NewOAuth(time.Minute, testGoogleProvider(srv))
	f := newFixture(t, o)
	ctx := context.Background()

	existing, err := f.svc.SignUp(ctx, "maya@example.com", "secret1")
	require.NoError(t, err)

	address, err := f.svc.AuthorizeURL("google")
	require.NoError(t, err)
	u, _ := url.Parse(address)

	_, err = f.svc.HandleCallback(ctx, "google", u.Query().Get("state"), "good-code")
	require.ErrorIs(t, err, identity.ErrEmailUnverified)
	require.ErrorIs(t, err, identity.ErrExchange)

	// The password account is untouched and still signs in.
	sess, err := f.svc.SignIn(ctx, "maya@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, existing.User.ID, sess.User.ID)
	require.Equal(t, identity.ProviderEmail, sess.User.Provider)
}

func TestService_HandleCallbackOIDCVerifiedClaim(t *testing.T) {
	srv := newFakeGoogleWithProfile(t, map[string]any{
		"sub":            "google-456",
		"email":          "lee@example.com",
		"email_verified": true,
	})
	o := identity.NewOAuth(time.Minute, testGoogleProvider(srv))
	f := newFixture(t, o)
	ctx := context.Background()

	address, err := f.svc.AuthorizeURL("google")
	require.NoError(t, err)
	u, _ := url.Parse(address)

	returnTo, err := f.svc.HandleCallback(ctx, "google", u.Query().Get("state"), "good-code")
	require.NoError(t, err)
	tokens, _, _, err := auth.ExtractTokens(returnTo)
	require.NoError(t, err)
	sess, err := f.svc.SessionFor(ctx, tokens)
	require.NoError(t, err)
	require.Equal(t, "lee@example.com", sess.User.Email)
}
