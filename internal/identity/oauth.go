package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is Google's OAuth2 profile endpoint.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthProvider is one configured external sign-in provider
type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
}

// GoogleProvider configures Google sign-in.
func GoogleProvider(clientID, clientSecret, redirectURL string) OAuthProvider {
	return OAuthProvider{
		Name: ProviderGoogle,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		UserInfoURL: GoogleUserInfoURL,
	}
}

// OAuth runs the authorization-code flow. State nonces live in a TTL cache
// and are consumed on first use.
type OAuth struct {
	providers map[string]OAuthProvider
	mu        sync.Mutex
	states    *cache.Cache
}

// NewOAuth creates a flow whose state nonces expire after stateTTL.
func NewOAuth(stateTTL time.Duration, providers ...OAuthProvider) *OAuth {
	byName := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		byName[p.Name] = p
	}
	return &OAuth{
		providers: byName,
		states:    cache.New(stateTTL, 2*stateTTL),
	}
}

// Providers lists the configured provider names.
func (o *OAuth) Providers() []string {
	names := make([]string, 0, len(o.providers))
	for name := range o.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AuthorizeURL returns the provider consent address for a fresh state nonce.
func (o *OAuth) AuthorizeURL(provider string) (string, error) {
	p, ok := o.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	state := uuid.NewString()
	o.states.Set(state, provider, cache.DefaultExpiration)

	return p.Config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// Exchange validates the state, trades the code for a token and fetches the
// provider profile.
func (o *OAuth) Exchange(ctx context.Context, provider, state, code string) (*ExternalUser, error) {
	p, ok := o.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	if !o.consumeState(state, provider) {
		return nil, ErrInvalidState
	}

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", ErrExchange, err)
	}

	resp, err := p.Config.Client(ctx, token).Get(p.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching profile: %v", ErrExchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile endpoint returned %s", ErrExchange, resp.Status)
	}

	var profile struct {
		ID            string `json:"id"`
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: decoding profile: %v", ErrExchange, err)
	}

	subject := profile.ID
	if subject == "" {
		subject = profile.Sub
	}
	if subject == "" || profile.Email == "" {
		return nil, fmt.Errorf("%w: profile lacks id or email", ErrExchange)
	}

	return &ExternalUser{
		Provider:      provider,
		Subject:       subject,
		Email:         profile.Email,
		EmailVerified: profile.VerifiedEmail || profile.EmailVerified,
	}, nil
}

func (o *OAuth) consumeState(state, provider string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, found := o.states.Get(state)
	if !found {
		return false
	}
	o.states.Delete(state)
	return v.(string) == provider
}
