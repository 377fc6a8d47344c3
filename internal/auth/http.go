// ABOUTME: HTTP middleware for bearer token authentication on gateway endpoints
// ABOUTME: Extracts the bearer token and adds the identity to the request context

package auth

import (
	"context"
	"net/http"
	"strings"
)

type identityKey struct{}

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the authenticated identity, or "" if the
// request was not authenticated.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}

// ExtractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func ExtractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// RejectFunc writes the fixed unauthenticated response. The gateway
// supplies a JSON-RPC shaped body so rejected requests still parse.
type RejectFunc func(w http.ResponseWriter, status int, message string)

// Middleware creates an HTTP middleware that extracts and verifies bearer
// tokens. Unauthenticated requests get the reject response and never reach
// the wrapped handler.
func Middleware(verifier TokenVerifier, reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := ExtractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				reject(w, http.StatusUnauthorized, errMsg)
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				reject(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
