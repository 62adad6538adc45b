package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

var tokenParams = []string{
	"access_token",
	"refresh_token",
	"expires_in",
	"expires_at",
	"token_type",
	"provider_token",
	"provider_refresh_token",
	"type",
	"error",
	"error_code",
	"error_description",
}

// errProviderRedirect carries an error reported on the return address.
var errProviderRedirect = errors.New("provider returned an error")

// ExtractTokens looks for provider tokens in the fragment or query of a
// return address. It returns the tokens, the address with every token
// parameter removed, and whether the address carried a provider response.
// A provider-reported error is returned as an error with found set.
func ExtractTokens(address string) (Tokens, string, bool, error) {
	u, err := url.Parse(address)
	if err != nil {
		return Tokens{}, address, false, ErrInvalidAddress
	}

	// A fragment or query that is not a parameter list carries no tokens and
	// is kept as it was.
	fragment, err := url.ParseQuery(u.Fragment)
	if err != nil {
		fragment = url.Values{}
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		query = url.Values{}
	}

	get := func(key string) string {
		if v := fragment.Get(key); v != "" {
			return v
		}
		return query.Get(key)
	}

	tokens := Tokens{
		AccessToken:          get("access_token"),
		RefreshToken:         get("refresh_token"),
		TokenType:            get("token_type"),
		ProviderToken:        get("provider_token"),
		ProviderRefreshToken: get("provider_refresh_token"),
		Type:                 get("type"),
	}
	tokens.ExpiresIn, _ = strconv.Atoi(get("expires_in"))
	providerErr := get("error_description")
	if providerErr == "" {
		providerErr = get("error")
	}

	if tokens.AccessToken == "" && providerErr == "" {
		return Tokens{}, address, false, nil
	}

	fromFragment, fromQuery := false, false
	for _, key := range tokenParams {
		if fragment.Has(key) {
			fragment.Del(key)
			fromFragment = true
		}
		if query.Has(key) {
			query.Del(key)
			fromQuery = true
		}
	}
	if fromQuery {
		u.RawQuery = query.Encode()
	}
	if fromFragment {
		u.Fragment = fragment.Encode()
		u.RawFragment = ""
	}
	cleaned := u.String()

	if providerErr != "" {
		return Tokens{}, cleaned, true, fmt.Errorf("%w: %s", errProviderRedirect, providerErr)
	}
	return tokens, cleaned, true, nil
}
