// Package auth provides token-based authentication for infragate.
//
// # Tokens
//
// Clients authenticate with JWT bearer tokens signed with HS256 using the
// configured jwt_secret:
//
//	manager, err := auth.NewTokenManager(secret)
//	token, err := manager.Issue("operator:alice", 30*24*time.Hour)
//	identity, err := manager.Verify(token)
//
// Tokens carry the identity in the "sub" claim plus "iat" and "exp".
// Verification is stateless; there is no revocation list and expiry is
// the only invalidation mechanism.
//
// # HTTP Middleware
//
// Middleware wraps the MCP endpoint and rejects requests without a valid
// bearer token before any protocol logic runs. The authenticated identity
// is available downstream via IdentityFromContext.
package auth
