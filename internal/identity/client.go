package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rpggio/wellnest/internal/domain/auth"
)

const (
	keyAccessToken  = "auth.access_token"
	keyRefreshToken = "auth.refresh_token"
)

// Client is the application's handle on the identity provider. It keeps the
// current session, persists it in device-local preferences, and announces
// changes on an event stream. It implements auth.Provider.
type Client struct {
	svc    *Service
	prefs  auth.Preferences
	events *Broadcaster
	logger *slog.Logger

	mu      sync.Mutex
	current *Session
}

// NewClient creates a client over svc.
func NewClient(svc *Service, prefs auth.Preferences, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		svc:    svc,
		prefs:  prefs,
		events: NewBroadcaster(),
		logger: logger,
	}
}

// GetSession returns the current session, restoring a persisted one if
// needed. No session is not an error.
func (c *Client) GetSession(ctx context.Context) (*auth.ProviderSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.current.ToAuth(), nil
	}

	access, ok, err := c.prefs.GetPreference(ctx, keyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("reading stored session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	refresh, _, err := c.prefs.GetPreference(ctx, keyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("reading stored session: %w", err)
	}

	sess, err := c.svc.SessionFor(ctx, auth.Tokens{AccessToken: access, RefreshToken: refresh})
	if err == nil {
		c.current = sess
		return sess.ToAuth(), nil
	}
	if !errors.Is(err, ErrInvalidToken) {
		return nil, err
	}

	if refresh != "" {
		refreshed, rerr := c.svc.Refresh(ctx, refresh)
		if rerr == nil {
			c.current = refreshed
			c.persist(ctx, refreshed)
			c.events.Publish(auth.Event{Type: auth.EventTokenRefreshed, Session: refreshed.ToAuth()})
			return refreshed.ToAuth(), nil
		}
		c.logger.Debug("stored refresh token rejected", "error", rerr)
	}

	c.forget(ctx)
	return nil, nil
}

// SignUp registers and signs in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	sess, err := c.svc.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.signedIn(ctx, sess, auth.EventSignedIn), nil
}

// SignInWithPassword signs in with email and password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	sess, err := c.svc.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.signedIn(ctx, sess, auth.EventSignedIn), nil
}

// SignOut drops the local session and revokes its tokens. The signed-out
// event is published even if revocation fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	cur := c.current
	c.current = nil
	c.mu.Unlock()

	c.forget(ctx)

	var err error
	if cur != nil {
		err = c.svc.SignOut(ctx, cur.AccessToken, cur.RefreshToken)
	}
	c.events.Publish(auth.Event{Type: auth.EventSignedOut})
	return err
}

// AuthorizeURL returns the external provider's consent address.
func (c *Client) AuthorizeURL(ctx context.Context, provider string) (string, error) {
	return c.svc.AuthorizeURL(provider)
}

// SessionFromTokens adopts a session handed back on a return address.
func (c *Client) SessionFromTokens(ctx context.Context, tokens auth.Tokens) (*auth.ProviderSession, error) {
	sess, err := c.svc.SessionFor(ctx, tokens)
	if err != nil {
		return nil, err
	}
	event := auth.EventSignedIn
	if tokens.Type == PurposeRecovery {
		event = auth.EventPasswordRecovery
	}
	return c.signedIn(ctx, sess, event), nil
}

// ResetPasswordForEmail mails a recovery link.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	return c.svc.RequestRecovery(ctx, email)
}

// UpdatePassword changes the current user's password.
func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil {
		return ErrNoSession
	}
	return c.svc.UpdatePassword(ctx, cur.AccessToken, newPassword)
}

// Refresh rotates the current session's tokens.
func (c *Client) Refresh(ctx context.Context) (*auth.ProviderSession, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil || cur.RefreshToken == "" {
		return nil, ErrNoSession
	}
	sess, err := c.svc.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		return nil, err
	}
	return c.signedIn(ctx, sess, auth.EventTokenRefreshed), nil
}

// AccessToken returns the current bearer token, if any.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.AccessToken
}

// Subscribe registers fn for session-change events.
func (c *Client) Subscribe(fn func(auth.Event)) func() {
	return c.events.Subscribe(fn)
}

func (c *Client) signedIn(ctx context.Context, sess *Session, event auth.EventType) *auth.ProviderSession {
	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()

	c.persist(ctx, sess)
	view := sess.ToAuth()
	c.events.Publish(auth.Event{Type: event, Session: view})
	return view
}

func (c *Client) persist(ctx context.Context, sess *Session) {
	if err := c.prefs.SetPreference(ctx, keyAccessToken, sess.AccessToken); err != nil {
		c.logger.Warn("session not persisted", "error", err)
		return
	}
	if sess.RefreshToken == "" {
		if err := c.prefs.DeletePreference(ctx, keyRefreshToken); err != nil {
			c.logger.Warn("stale refresh token not cleared", "error", err)
		}
		return
	}
	if err := c.prefs.SetPreference(ctx, keyRefreshToken, sess.RefreshToken); err != nil {
		c.logger.Warn("refresh token not persisted", "error", err)
	}
}

func (c *Client) forget(ctx context.Context) {
	for _, key := range []string{keyAccessToken, keyRefreshToken} {
		if err := c.prefs.DeletePreference(ctx, key); err != nil {
			c.logger.Warn("stored session not cleared", "key", key, "error", err)
		}
	}
}
