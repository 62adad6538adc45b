package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rpggio/wellnest/internal/notify"
)

// RememberMeKey is the local preference set by a remembered sign-in.
const RememberMeKey = "wellnest_remember_me"

// signOutSettle bounds how long SignOut waits for the provider to deliver
// its signed-out event.
const signOutSettle = 2 * time.Second

// Session is the process-wide authentication session. It mirrors the
// identity provider's session and is mutated only by its own operations and
// the provider's event stream.
type Session struct {
	provider Provider
	prefs    Preferences
	notifier notify.Notifier
	logger   *slog.Logger

	mu             sync.RWMutex
	identity       *Identity
	isLoading      bool
	resolved       bool
	sessionLoading bool
	// signOuts holds one channel per sign-out whose signed-out event has not
	// been handled yet. While any is pending, sign-in events are stale.
	signOuts []chan struct{}

	startOnce   sync.Once
	closeOnce   sync.Once
	unsubscribe func()
	ready       chan struct{}
	startErr    error
}

// NewSession creates an unresolved session. Call Start to resolve it.
func NewSession(provider Provider, prefs Preferences, notifier notify.Notifier, logger *slog.Logger) *Session {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		provider:  provider,
		prefs:     prefs,
		notifier:  notifier,
		logger:    logger,
		isLoading: true,
		ready:     make(chan struct{}),
	}
}

// Start subscribes to provider events and resolves the existing remote
// session. It runs once; later calls return the first result.
func (s *Session) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		s.unsubscribe = s.provider.Subscribe(s.handleEvent)

		sess, err := s.provider.GetSession(ctx)
		if err != nil {
			s.startErr = fmt.Errorf("%w: %w", ErrSessionResolution, err)
			s.logger.Error("session resolution failed", "error", err)
			s.notifier.Notify(notify.Destructive("Error", err.Error()))
			s.mu.Lock()
			s.finishLoading()
			s.mu.Unlock()
		} else {
			remember := s.rememberMe(ctx)
			s.mu.Lock()
			if !s.resolved {
				s.identity = identityFrom(sess, remember)
			}
			s.finishLoading()
			s.mu.Unlock()
		}
		close(s.ready)
	})
	return s.startErr
}

// Ready is closed once startup resolution has completed.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until startup resolution completes or ctx ends.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the provider subscription. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{IsLoading: s.isLoading, SessionLoading: s.sessionLoading}
	if s.identity != nil {
		id := *s.identity
		st.Identity = &id
	}
	return st
}

// RequireIdentity returns the current identity, or an error wrapping
// record.ErrPermission while the user is unknown or signed out.
func (s *Session) RequireIdentity() (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.isLoading {
		return Identity{}, ErrSessionPending
	}
	if s.identity == nil {
		return Identity{}, ErrNotAuthenticated
	}
	return *s.identity, nil
}

// CurrentUserID returns the acting user's id for record operations.
func (s *Session) CurrentUserID() (string, error) {
	id, err := s.RequireIdentity()
	if err != nil {
		return "", err
	}
	return id.ID, nil
}

// SignUp registers a new account. The identity arrives through the
// provider's signed-in event.
func (s *Session) SignUp(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	s.beginSignIn()
	defer s.setSessionLoading(false)

	if _, err := s.provider.SignUp(ctx, strings.TrimSpace(email), password); err != nil {
		return s.remoteFailure("Registration Failed", err)
	}
	s.notifier.Notify(notify.Info("Registration Successful", "Welcome to Wellnest!"))
	return nil
}

// SignIn signs in with a password and records the remember-me choice.
func (s *Session) SignIn(ctx context.Context, email, password string, rememberMe bool) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	s.beginSignIn()
	defer s.setSessionLoading(false)

	// The signed-in event reads the preference, so it is stored first.
	s.storeRememberMe(ctx, rememberMe)
	if _, err := s.provider.SignInWithPassword(ctx, strings.TrimSpace(email), password); err != nil {
		return s.remoteFailure("Login Failed", err)
	}

	s.mu.Lock()
	if s.identity != nil {
		s.identity.RememberMe = rememberMe
	}
	s.mu.Unlock()
	return nil
}

// SignOut revokes the remote session. Local state becomes unauthenticated
// even when the provider call fails.
//
// Events the provider queued before the sign-out are dropped until its
// signed-out event arrives, so an earlier sign-in cannot restore the
// identity afterwards. A successful SignOut returns once that event has
// been handled or signOutSettle has passed.
func (s *Session) SignOut(ctx context.Context) error {
	s.setSessionLoading(true)
	defer s.setSessionLoading(false)

	handled := make(chan struct{})
	s.mu.Lock()
	s.identity = nil
	s.signOuts = append(s.signOuts, handled)
	s.mu.Unlock()

	remoteErr := s.provider.SignOut(ctx)
	if s.prefs != nil {
		if err := s.prefs.DeletePreference(ctx, RememberMeKey); err != nil {
			s.logger.Warn("remember-me preference not cleared", "error", err)
		}
	}

	if remoteErr == nil {
		timer := time.NewTimer(signOutSettle)
		select {
		case <-handled:
		case <-ctx.Done():
		case <-timer.C:
			s.logger.Warn("signed-out event not delivered in time")
		}
		timer.Stop()
	}

	s.mu.Lock()
	s.identity = nil
	s.finishLoading()
	s.mu.Unlock()

	if remoteErr != nil {
		return s.remoteFailure("Error", remoteErr)
	}
	return nil
}

// SignInWithExternalProvider returns the address to send the user to.
func (s *Session) SignInWithExternalProvider(ctx context.Context, provider string) (string, error) {
	s.setSessionLoading(true)
	defer s.setSessionLoading(false)

	address, err := s.provider.AuthorizeURL(ctx, provider)
	if err != nil {
		return "", s.remoteFailure(providerLabel(provider)+" Sign In Failed", err)
	}
	return address, nil
}

// CompleteExternalSignIn consumes provider tokens carried by a return
// address and returns the address with the tokens removed. Addresses without
// tokens are returned unchanged and cause no provider call.
func (s *Session) CompleteExternalSignIn(ctx context.Context, address string) (string, error) {
	tokens, cleaned, found, err := ExtractTokens(address)
	if !found {
		return cleaned, err
	}
	if err != nil {
		return cleaned, s.remoteFailure("Sign In Failed", err)
	}

	s.mu.Lock()
	s.releaseSignOuts()
	s.isLoading = true
	s.mu.Unlock()

	sess, err := s.provider.SessionFromTokens(ctx, tokens)

	s.mu.Lock()
	if err == nil {
		remember := s.identity != nil && s.identity.RememberMe
		s.identity = identityFrom(sess, remember)
	}
	s.finishLoading()
	s.mu.Unlock()

	if err != nil {
		return cleaned, s.remoteFailure("Sign In Failed", err)
	}
	return cleaned, nil
}

// RequestPasswordReset mails a recovery link.
func (s *Session) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrMissingCredentials
	}
	if err := s.provider.ResetPasswordForEmail(ctx, strings.TrimSpace(email)); err != nil {
		return s.remoteFailure("Reset Failed", err)
	}
	s.notifier.Notify(notify.Info("Reset Email Sent", "Check your email for password reset instructions"))
	return nil
}

// UpdatePassword changes the signed-in user's password.
func (s *Session) UpdatePassword(ctx context.Context, newPassword string) error {
	if newPassword == "" {
		return ErrMissingCredentials
	}
	if err := s.provider.UpdatePassword(ctx, newPassword); err != nil {
		return s.remoteFailure("Update Failed", err)
	}
	s.notifier.Notify(notify.Info("Password Updated", "Your password has been successfully updated"))
	return nil
}

func (s *Session) handleEvent(ev Event) {
	remember := false
	if ev.Type != EventSignedOut {
		remember = s.rememberMe(context.Background())
	}

	s.mu.Lock()
	if ev.Type != EventSignedOut && len(s.signOuts) > 0 {
		s.mu.Unlock()
		s.logger.Debug("dropping auth event queued before sign-out", "type", ev.Type)
		return
	}
	switch ev.Type {
	case EventSignedOut:
		s.identity = nil
		s.releaseSignOuts()
	default:
		s.identity = identityFrom(ev.Session, remember)
	}
	s.resolved = true
	s.finishLoading()
	s.mu.Unlock()

	s.logger.Debug("auth event", "type", ev.Type)

	switch ev.Type {
	case EventSignedIn:
		s.notifier.Notify(notify.Info("Welcome!", "Successfully signed in to Wellnest"))
	case EventSignedOut:
		s.notifier.Notify(notify.Info("Goodbye!", "Successfully signed out"))
	case EventPasswordRecovery:
		s.notifier.Notify(notify.Info("Password Reset", "Check your email for password reset instructions"))
	}
}

// releaseSignOuts must be called with mu held.
func (s *Session) releaseSignOuts() {
	for _, ch := range s.signOuts {
		close(ch)
	}
	s.signOuts = nil
}

// beginSignIn ends the wait for signed-out events that never came; the
// caller is about to establish a new identity.
func (s *Session) beginSignIn() {
	s.mu.Lock()
	s.releaseSignOuts()
	s.sessionLoading = true
	s.mu.Unlock()
}

// finishLoading must be called with mu held.
func (s *Session) finishLoading() {
	s.isLoading = false
}

func (s *Session) setSessionLoading(v bool) {
	s.mu.Lock()
	s.sessionLoading = v
	s.mu.Unlock()
}

func (s *Session) storeRememberMe(ctx context.Context, remember bool) {
	if s.prefs == nil {
		return
	}
	var err error
	if remember {
		err = s.prefs.SetPreference(ctx, RememberMeKey, "true")
	} else {
		err = s.prefs.DeletePreference(ctx, RememberMeKey)
	}
	if err != nil {
		s.logger.Warn("remember-me preference not saved", "error", err)
	}
}

func (s *Session) rememberMe(ctx context.Context) bool {
	if s.prefs == nil {
		return false
	}
	v, ok, err := s.prefs.GetPreference(ctx, RememberMeKey)
	if err != nil {
		s.logger.Warn("remember-me preference unreadable", "error", err)
		return false
	}
	return ok && v == "true"
}

func (s *Session) remoteFailure(title string, err error) error {
	s.logger.Warn("identity provider call failed", "title", title, "error", err)
	s.notifier.Notify(notify.Destructive(title, err.Error()))
	if errors.Is(err, ErrRemote) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRemote, err)
}

func identityFrom(sess *ProviderSession, remember bool) *Identity {
	if sess == nil {
		return nil
	}
	id := sess.User
	id.RememberMe = remember
	return &id
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrMissingCredentials
	}
	return nil
}

func providerLabel(provider string) string {
	switch provider {
	case "google":
		return "Google"
	case "":
		return "External"
	default:
		return strings.ToUpper(provider[:1]) + provider[1:]
	}
}
