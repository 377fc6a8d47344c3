// ABOUTME: JWT token issuance and verification for authenticating gateway requests
// ABOUTME: Uses HS256 signing with a configurable secret; expiry is the only invalidation

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrNoSigningKey = errors.New("no signing key configured")
)

// TokenVerifier defines the interface for token verification.
type TokenVerifier interface {
	Verify(tokenString string) (identity string, err error)
}

// TokenIssuer defines the interface for token issuance.
type TokenIssuer interface {
	Issue(identity string, ttl time.Duration) (string, error)
}

// TokenManager issues and verifies HS256 signed JWTs. Verification is
// stateless: there is no revocation list, so a token stays valid until
// its expiry. That is a deliberate design limitation, not an oversight.
type TokenManager struct {
	secret []byte
}

// NewTokenManager creates a token manager with the given signing secret.
// Returns ErrNoSigningKey if the secret is empty.
func NewTokenManager(secret []byte) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, ErrNoSigningKey
	}
	return &TokenManager{secret: secret}, nil
}

// Verify validates the token and extracts the identity from the "sub" claim.
// Returns ErrExpiredToken when the token is past its expiry, ErrInvalidToken
// for any structural or signature problem.
func (m *TokenManager) Verify(tokenString string) (identity string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		// Check if it's specifically an expiration error
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return sub, nil
}

// Issue creates a new JWT for the given identity, valid for ttl from now.
func (m *TokenManager) Issue(identity string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": identity,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
