package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/notify"
	"github.com/rpggio/wellnest/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu           sync.Mutex
	session      *auth.ProviderSession
	getErr       error
	signInErr    error
	signOutErr   error
	tokensErr    error
	calls        []string
	subscribers  map[int]func(auth.Event)
	nextSub      int
	unsubscribed int
	onSignIn     func()
	// holdEvents queues non-sign-out events until the next SignOut, as an
	// asynchronous event stream may.
	holdEvents bool
	held       []auth.Event
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subscribers: map[int]func(auth.Event){}}
}

func (p *fakeProvider) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *fakeProvider) callCount(call string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (p *fakeProvider) emit(ev auth.Event) {
	p.mu.Lock()
	if p.holdEvents && ev.Type != auth.EventSignedOut {
		p.held = append(p.held, ev)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.deliver(ev)
}

func (p *fakeProvider) releaseHeld() {
	p.mu.Lock()
	held := p.held
	p.held = nil
	p.mu.Unlock()
	for _, ev := range held {
		p.deliver(ev)
	}
}

func (p *fakeProvider) deliver(ev auth.Event) {
	p.mu.Lock()
	subs := make([]func(auth.Event), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func sessionFor(id, email string) *auth.ProviderSession {
	return &auth.ProviderSession{
		AccessToken: "token-" + id,
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        auth.Identity{ID: id, Email: email, Provider: "email"},
	}
}

func (p *fakeProvider) GetSession(ctx context.Context) (*auth.ProviderSession, error) {
	p.record("GetSession")
	return p.session, p.getErr
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	p.record("SignUp")
	sess := sessionFor("new-user", email)
	p.emit(auth.Event{Type: auth.EventSignedIn, Session: sess})
	return sess, nil
}

func (p *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	p.record("SignInWithPassword")
	if p.onSignIn != nil {
		p.onSignIn()
	}
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	sess := sessionFor("user1", email)
	p.emit(auth.Event{Type: auth.EventSignedIn, Session: sess})
	return sess, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.record("SignOut")
	if p.signOutErr != nil {
		return p.signOutErr
	}
	p.releaseHeld()
	p.emit(auth.Event{Type: auth.EventSignedOut})
	return nil
}

func (p *fakeProvider) AuthorizeURL(ctx context.Context, provider string) (string, error) {
	p.record("AuthorizeURL")
	if provider != "google" {
		return "", errors.New("unsupported provider")
	}
	return "https://accounts.example.com/auth?state=abc", nil
}

func (p *fakeProvider) SessionFromTokens(ctx context.Context, tokens auth.Tokens) (*auth.ProviderSession, error) {
	p.record("SessionFromTokens")
	if p.tokensErr != nil {
		return nil, p.tokensErr
	}
	return sessionFor("oauth-user", "oauth@example.com"), nil
}

func (p *fakeProvider) ResetPasswordForEmail(ctx context.Context, email string) error {
	p.record("ResetPasswordForEmail")
	return nil
}

func (p *fakeProvider) UpdatePassword(ctx context.Context, newPassword string) error {
	p.record("UpdatePassword")
	return nil
}

func (p *fakeProvider) Subscribe(fn func(auth.Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
		p.unsubscribed++
	}
}

type memPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemPrefs() *memPrefs { return &memPrefs{values: map[string]string{}} }

func (m *memPrefs) GetPreference(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memPrefs) SetPreference(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memPrefs) DeletePreference(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func startedSession(t *testing.T, provider *fakeProvider) (*auth.Session, *notify.Feed, *memPrefs) {
	t.Helper()
	feed := notify.NewFeed(0, nil)
	prefs := newMemPrefs()
	s := auth.NewSession(provider, prefs, feed, nil)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)
	return s, feed, prefs
}

func TestSession_UnknownUntilResolved(t *testing.T) {
	provider := newFakeProvider()
	provider.session = sessionFor("user1", "maya@example.com")
	s := auth.NewSession(provider, newMemPrefs(), nil, nil)

	st := s.State()
	require.True(t, st.IsLoading)
	require.False(t, st.Authenticated())
	_, err := s.RequireIdentity()
	require.ErrorIs(t, err, auth.ErrSessionPending)
	require.ErrorIs(t, err, record.ErrPermission)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, 1, provider.callCount("GetSession"))

	st = s.State()
	require.False(t, st.IsLoading)
	require.True(t, st.Authenticated())
	require.Equal(t, "user1", st.Identity.ID)

	select {
	case <-s.Ready():
	default:
		t.Fatal("ready channel not closed")
	}
}

func TestSession_ResolutionFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.getErr = errors.New("network down")
	feed := notify.NewFeed(0, nil)
	s := auth.NewSession(provider, newMemPrefs(), feed, nil)

	err := s.Start(context.Background())
	require.ErrorIs(t, err, auth.ErrSessionResolution)

	st := s.State()
	require.False(t, st.IsLoading)
	require.Nil(t, st.Identity)
	require.Equal(t, []string{"Error"}, feed.Titles())

	_, err = s.RequireIdentity()
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestSession_EventStream(t *testing.T) {
	provider := newFakeProvider()
	s, feed, _ := startedSession(t, provider)

	provider.emit(auth.Event{Type: auth.EventSignedIn, Session: sessionFor("user1", "a@example.com")})
	require.Equal(t, "user1", s.State().Identity.ID)

	provider.emit(auth.Event{Type: auth.EventTokenRefreshed, Session: sessionFor("user1", "a@example.com")})
	require.Equal(t, "user1", s.State().Identity.ID)

	provider.emit(auth.Event{Type: auth.EventPasswordRecovery, Session: sessionFor("user1", "a@example.com")})
	provider.emit(auth.Event{Type: auth.EventSignedOut})
	require.Nil(t, s.State().Identity)

	require.Equal(t, []string{"Welcome!", "Password Reset", "Goodbye!"}, feed.Titles())
}

func TestSession_SignInRememberMe(t *testing.T) {
	provider := newFakeProvider()
	s, _, prefs := startedSession(t, provider)

	var loadingDuringCall bool
	provider.onSignIn = func() { loadingDuringCall = s.State().SessionLoading }

	require.NoError(t, s.SignIn(context.Background(), " maya@example.com ", "secret", true))
	require.True(t, loadingDuringCall)
	require.False(t, s.State().SessionLoading)

	id, err := s.RequireIdentity()
	require.NoError(t, err)
	require.Equal(t, "maya@example.com", id.Email)
	require.True(t, id.RememberMe)

	v, ok, _ := prefs.GetPreference(context.Background(), auth.RememberMeKey)
	require.True(t, ok)
	require.Equal(t, "true", v)

	require.NoError(t, s.SignIn(context.Background(), "maya@example.com", "secret", false))
	_, ok, _ = prefs.GetPreference(context.Background(), auth.RememberMeKey)
	require.False(t, ok)
}

func TestSession_SignInPreferenceFailureIsNotFatal(t *testing.T) {
	provider := newFakeProvider()
	prefs := &mocks.PreferenceStore{}
	prefs.On("GetPreference", mock.Anything, auth.RememberMeKey).Return("", false, nil)
	prefs.On("SetPreference", mock.Anything, auth.RememberMeKey, "true").Return(errors.New("disk full"))

	s := auth.NewSession(provider, prefs, nil, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	require.NoError(t, s.SignIn(context.Background(), "maya@example.com", "secret", true))
	prefs.AssertExpectations(t)
}

func TestSession_SignInFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.signInErr = errors.New("Invalid login credentials")
	s, feed, _ := startedSession(t, provider)

	err := s.SignIn(context.Background(), "maya@example.com", "wrong", false)
	require.ErrorIs(t, err, auth.ErrRemote)
	require.Nil(t, s.State().Identity)
	require.False(t, s.State().SessionLoading)
	require.Equal(t, []string{"Login Failed"}, feed.Titles())
}

func TestSession_SignInValidation(t *testing.T) {
	provider := newFakeProvider()
	s, _, _ := startedSession(t, provider)

	err := s.SignIn(context.Background(), "", "secret", false)
	require.ErrorIs(t, err, record.ErrValidation)
	require.Zero(t, provider.callCount("SignInWithPassword"))
}

func TestSession_SignUp(t *testing.T) {
	provider := newFakeProvider()
	s, feed, _ := startedSession(t, provider)

	require.NoError(t, s.SignUp(context.Background(), "new@example.com", "secret"))
	require.Equal(t, "new-user", s.State().Identity.ID)
	require.Contains(t, feed.Titles(), "Registration Successful")
}

func TestSession_SignOutAlwaysClearsLocalState(t *testing.T) {
	provider := newFakeProvider()
	provider.session = sessionFor("user1", "maya@example.com")
	s, feed, prefs := startedSession(t, provider)
	require.NoError(t, prefs.SetPreference(context.Background(), auth.RememberMeKey, "true"))

	provider.signOutErr = errors.New("network down")
	err := s.SignOut(context.Background())
	require.ErrorIs(t, err, auth.ErrRemote)

	require.Nil(t, s.State().Identity)
	_, err = s.RequireIdentity()
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
	_, ok, _ := prefs.GetPreference(context.Background(), auth.RememberMeKey)
	require.False(t, ok)
	require.Equal(t, []string{"Error"}, feed.Titles())
}

func TestSession_SignOutDropsQueuedSignIn(t *testing.T) {
	provider := newFakeProvider()
	provider.holdEvents = true
	s, feed, _ := startedSession(t, provider)

	require.NoError(t, s.SignUp(context.Background(), "new@example.com", "secret"))
	require.Nil(t, s.State().Identity)

	// The held signed-in event reaches the session during SignOut, before
	// the signed-out event.
	require.NoError(t, s.SignOut(context.Background()))

	_, err := s.CurrentUserID()
	require.ErrorIs(t, err, record.ErrPermission)
	require.NotContains(t, feed.Titles(), "Welcome!")
	require.Contains(t, feed.Titles(), "Goodbye!")

	// Later sign-ins are applied again.
	provider.holdEvents = false
	require.NoError(t, s.SignIn(context.Background(), "new@example.com", "secret", false))
	id, err := s.CurrentUserID()
	require.NoError(t, err)
	require.Equal(t, "user1", id)
}

func TestSession_FailedSignOutDropsLateSignIn(t *testing.T) {
	provider := newFakeProvider()
	provider.session = sessionFor("user1", "maya@example.com")
	s, _, _ := startedSession(t, provider)

	provider.signOutErr = errors.New("network down")
	require.ErrorIs(t, s.SignOut(context.Background()), auth.ErrRemote)

	// No signed-out event arrived; a stale sign-in is still ignored.
	provider.emit(auth.Event{Type: auth.EventSignedIn, Session: sessionFor("user1", "maya@example.com")})
	_, err := s.CurrentUserID()
	require.ErrorIs(t, err, record.ErrPermission)

	provider.signOutErr = nil
	require.NoError(t, s.SignIn(context.Background(), "maya@example.com", "secret", false))
	_, err = s.CurrentUserID()
	require.NoError(t, err)
}

func TestSession_ExternalSignIn(t *testing.T) {
	provider := newFakeProvider()
	s, feed, _ := startedSession(t, provider)

	address, err := s.SignInWithExternalProvider(context.Background(), "google")
	require.NoError(t, err)
	require.Contains(t, address, "state=abc")

	_, err = s.SignInWithExternalProvider(context.Background(), "myspace")
	require.ErrorIs(t, err, auth.ErrRemote)
	require.Contains(t, feed.Titles(), "Myspace Sign In Failed")

	cleaned, err := s.CompleteExternalSignIn(context.Background(),
		"http://localhost:8080/my-sessions?tab=drafts#access_token=abc&refresh_token=def&expires_in=3600&token_type=bearer")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/my-sessions?tab=drafts", cleaned)

	st := s.State()
	require.False(t, st.IsLoading)
	require.Equal(t, "oauth-user", st.Identity.ID)
}

func TestSession_CompleteWithoutTokens(t *testing.T) {
	provider := newFakeProvider()
	s, _, _ := startedSession(t, provider)

	address := "http://localhost:8080/editor#section"
	cleaned, err := s.CompleteExternalSignIn(context.Background(), address)
	require.NoError(t, err)
	require.Equal(t, address, cleaned)
	require.Zero(t, provider.callCount("SessionFromTokens"))
}

func TestSession_CompleteExternalSignInFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.tokensErr = errors.New("token expired")
	s, _, _ := startedSession(t, provider)

	cleaned, err := s.CompleteExternalSignIn(context.Background(), "http://localhost/#access_token=abc")
	require.ErrorIs(t, err, auth.ErrRemote)
	require.Equal(t, "http://localhost/", cleaned)
	require.False(t, s.State().IsLoading)
	require.Nil(t, s.State().Identity)
}

func TestSession_PasswordOperations(t *testing.T) {
	provider := newFakeProvider()
	s, feed, _ := startedSession(t, provider)

	require.NoError(t, s.RequestPasswordReset(context.Background(), "maya@example.com"))
	require.NoError(t, s.UpdatePassword(context.Background(), "n3w-secret"))
	require.ErrorIs(t, s.UpdatePassword(context.Background(), ""), record.ErrValidation)
	require.Equal(t, []string{"Reset Email Sent", "Password Updated"}, feed.Titles())
}

func TestSession_CloseReleasesSubscriptionOnce(t *testing.T) {
	provider := newFakeProvider()
	s := auth.NewSession(provider, newMemPrefs(), nil, nil)
	require.NoError(t, s.Start(context.Background()))

	s.Close()
	s.Close()
	require.Equal(t, 1, provider.unsubscribed)

	provider.emit(auth.Event{Type: auth.EventSignedIn, Session: sessionFor("user1", "a@example.com")})
	require.Nil(t, s.State().Identity)
}
