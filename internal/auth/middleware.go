package auth

import (
	"context"
	"net/http"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// ContextKeyRole is the context key for storing the caller role
const ContextKeyRole contextKey = "role"

// Authenticator checks bearer keys against the configured client and admin keys.
type Authenticator struct {
	clientKey    string
	adminKey     string
	adminKeyHash string // bcrypt hash; accepted in addition to adminKey
}

// NewAuthenticator creates an Authenticator. Empty keys never match.
func NewAuthenticator(clientKey, adminKey, adminKeyHash string) *Authenticator {
	return &Authenticator{
		clientKey:    clientKey,
		adminKey:     adminKey,
		adminKeyHash: adminKeyHash,
	}
}

// AuthResult contains the result of an authentication attempt
type AuthResult struct {
	Authenticated bool
	Role          Role
	Error         string
}

// Authenticate resolves the role for an Authorization header.
func (a *Authenticator) Authenticate(authHeader string) AuthResult {
	token := ExtractBearerToken(authHeader)
	if token == "" {
		return AuthResult{Error: "missing bearer token"}
	}

	if a.adminKey != "" && VerifyAPIKeyConstantTime(token, a.adminKey) {
		return AuthResult{Authenticated: true, Role: RoleAdmin}
	}
	if a.adminKeyHash != "" && VerifyAPIKey(token, a.adminKeyHash) {
		return AuthResult{Authenticated: true, Role: RoleAdmin}
	}
	if a.clientKey != "" && VerifyAPIKeyConstantTime(token, a.clientKey) {
		return AuthResult{Authenticated: true, Role: RoleClient}
	}

	return AuthResult{Error: "invalid token"}
}

// RequireAuth is a middleware that requires a key with at least requiredRole
func (a *Authenticator) RequireAuth(requiredRole Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := a.Authenticate(r.Header.Get("Authorization"))

			if !result.Authenticated {
				http.Error(w, result.Error, http.StatusUnauthorized)
				return
			}
			if !HasPermission(result.Role, requiredRole) {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyRole, result.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRoleFromContext extracts the role from the request context
func GetRoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(ContextKeyRole).(Role)
	return role, ok
}
