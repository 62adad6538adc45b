package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Config tunes token lifetimes and the addresses handed back to the app.
type Config struct {
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	RecoveryTTL time.Duration
	// SiteURL is where OAuth sign-ins return, with tokens in the fragment.
	SiteURL string
	// RecoveryURL is where password-recovery links point.
	RecoveryURL string
}

func (c Config) withDefaults() Config {
	if c.AccessTTL <= 0 {
		c.AccessTTL = time.Hour
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.RecoveryTTL <= 0 {
		c.RecoveryTTL = time.Hour
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:8080/"
	}
	if c.RecoveryURL == "" {
		c.RecoveryURL = strings.TrimSuffix(c.SiteURL, "/") + "/reset-password"
	}
	return c
}

// Service is the server side of the identity provider: accounts, bearer
// tokens, OAuth callbacks and recovery mail.
type Service struct {
	users  UserRepository
	tokens TokenRepository
	issuer *TokenIssuer
	oauth  *OAuth
	mailer Mailer
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new identity service. oauth may be nil when no
// external provider is configured.
func NewService(users UserRepository, tokens TokenRepository, issuer *TokenIssuer, oauth *OAuth, mailer Mailer, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	return &Service{
		users:  users,
		tokens: tokens,
		issuer: issuer,
		oauth:  oauth,
		mailer: mailer,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// SignUp registers a password account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     ProviderEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return s.issueSession(user)
}

// SignIn checks a password and issues a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(user)
}

// Verify checks a token and loads its user.
func (s *Service) Verify(ctx context.Context, token string, purposes ...string) (*User, *Claims, error) {
	claims, err := s.issuer.Parse(token, purposes...)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("checking revocation: %w", err)
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading user: %w", err)
	}
	return user, claims, nil
}

// ResolveIdentity returns the user id behind an access token.
func (s *Service) ResolveIdentity(ctx context.Context, token string) (string, error) {
	user, _, err := s.Verify(ctx, token, PurposeAccess)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// SessionFor rebuilds a session from tokens handed back to the app.
func (s *Service) SessionFor(ctx context.Context, tokens auth.Tokens) (*Session, error) {
	user, claims, err := s.Verify(ctx, tokens.AccessToken, PurposeAccess, PurposeRecovery)
	if err != nil {
		return nil, err
	}
	tokenType := tokens.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokenType,
		ExpiresAt:    claims.ExpiresAt.Time,
		User:         *user,
	}, nil
}

// SignOut revokes the given tokens. Empty tokens are skipped; tokens that
// no longer verify are already unusable and are ignored.
func (s *Service) SignOut(ctx context.Context, tokens ...string) error {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		claims, err := s.issuer.Parse(token, PurposeAccess, PurposeRefresh, PurposeRecovery)
		if err != nil {
			s.logger.Debug("skipping revocation of unusable token", "error", err)
			continue
		}
		if err := s.tokens.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time); err != nil {
			return fmt.Errorf("revoking token: %w", err)
		}
	}
	return nil
}

// Refresh rotates a refresh token into a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	user, claims, err := s.Verify(ctx, refreshToken, PurposeRefresh)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Revoke(ctx, claims.ID, user.ID, claims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("rotating refresh token: %w", err)
	}
	return s.issueSession(user)
}

// AuthorizeURL returns the consent address of an external provider.
func (s *Service) AuthorizeURL(provider string) (string, error) {
	if s.oauth == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	return s.oauth.AuthorizeURL(provider)
}

// HandleCallback completes an OAuth sign-in and returns the app address to
// redirect to, carrying the session tokens in its fragment.
func (s *Service) HandleCallback(ctx context.Context, provider, state, code string) (string, error) {
	if s.oauth == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	ext, err := s.oauth.Exchange(ctx, provider, state, code)
	if err != nil {
		return "", err
	}

	user, err := s.upsertExternal(ctx, ext)
	if err != nil {
		return "", err
	}

	sess, err := s.issueSession(user)
	if err != nil {
		return "", err
	}
	s.logger.Info("external sign-in", "provider", provider, "user_id", user.ID)
	return returnAddress(s.cfg.SiteURL, sess, ""), nil
}

// RequestRecovery mails a recovery link. Unknown addresses succeed silently
// so the endpoint does not reveal which emails are registered.
func (s *Service) RequestRecovery(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Debug("recovery requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	token, claims, err := s.issuer.Issue(user, PurposeRecovery, s.cfg.RecoveryTTL)
	if err != nil {
		return err
	}
	sess := &Session{AccessToken: token, TokenType: "bearer", ExpiresAt: claims.ExpiresAt.Time, User: *user}
	link := returnAddress(s.cfg.RecoveryURL, sess, PurposeRecovery)

	if err := s.mailer.SendPasswordRecovery(ctx, user.Email, link); err != nil {
		return err
	}
	return nil
}

// UpdatePassword sets a new password for the holder of an access or
// recovery token. A recovery token is spent by a successful update.
func (s *Service) UpdatePassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	user, claims, err := s.Verify(ctx, token, PurposeAccess, PurposeRecovery)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash), s.now().UTC()); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if claims.Purpose == PurposeRecovery {
		if err := s.tokens.Revoke(ctx, claims.ID, user.ID, claims.ExpiresAt.Time); err != nil {
			return fmt.Errorf("spending recovery token: %w", err)
		}
	}
	return nil
}

// PurgeRevoked forgets revocations of tokens that have expired anyway.
func (s *Service) PurgeRevoked(ctx context.Context) (int64, error) {
	return s.tokens.PurgeExpired(ctx, s.now().UTC())
}

// Providers lists the configured external providers.
func (s *Service) Providers() []string {
	if s.oauth == nil {
		return []string{}
	}
	return s.oauth.Providers()
}

func (s *Service) upsertExternal(ctx context.Context, ext *ExternalUser) (*User, error) {
	user, err := s.users.GetByProviderSubject(ctx, ext.Provider, ext.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("looking up linked user: %w", err)
	}

	// Unverified addresses can neither link to nor claim an account.
	if !ext.EmailVerified {
		return nil, ErrEmailUnverified
	}
	email, err := normalizeEmail(ext.Email)
	if err != nil {
		return nil, err
	}
	user, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	now := s.now().UTC()
	user = &User{
		ID:              uuid.NewString(),
		Email:           email,
		Provider:        ext.Provider,
		ProviderSubject: ext.Subject,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

func (s *Service) issueSession(user *User) (*Session, error) {
	access, claims, err := s.issuer.Issue(user, PurposeAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.issuer.Issue(user, PurposeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    claims.ExpiresAt.Time,
		User:         *user,
	}, nil
}

func returnAddress(base string, sess *Session, typ string) string {
	v := url.Values{}
	v.Set("access_token", sess.AccessToken)
	if sess.RefreshToken != "" {
		v.Set("refresh_token", sess.RefreshToken)
	}
	v.Set("token_type", sess.TokenType)
	v.Set("expires_in", strconv.Itoa(int(time.Until(sess.ExpiresAt).Seconds())))
	if typ != "" {
		v.Set("type", typ)
	}
	return base + "#" + v.Encode()
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	return email, nil
}
