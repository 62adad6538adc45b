package identity

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims of every token the provider issues.
type Claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenIssuer creates an issuer for the given secret, issuer and audience.
func NewTokenIssuer(secret, issuer, audience string) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// Issue signs a token for user with the given purpose and lifetime.
func (i *TokenIssuer) Issue(user *User, purpose string, ttl time.Duration) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{
		Email:   user.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing %s token: %w", purpose, err)
	}
	return signed, claims, nil
}

// Parse verifies signature, issuer, audience and expiry, and requires the
// purpose claim to be one of purposes.
func (i *TokenIssuer) Parse(token string, purposes ...string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !slices.Contains(purposes, claims.Purpose) {
		return nil, fmt.Errorf("%w: unexpected purpose %q", ErrInvalidToken, claims.Purpose)
	}
	return claims, nil
}
