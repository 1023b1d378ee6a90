package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKeyType string

const identityKey contextKeyType = "identity"

// AccessTokenCookie is the cookie name used as an alternative credential
// source to the Authorization header.
const AccessTokenCookie = "access_token"

// Identity is the authenticated caller resolved from a session token.
// It is placed in the request context exactly once by the Auth middleware;
// downstream handlers never re-derive it.
type Identity struct {
	ID    string
	Email string
	Admin bool
}

// SessionResolver turns a raw session token into an authenticated Identity.
// It must fail for absent, malformed, expired, or badly signed tokens, and
// for identities that are unknown or inactive, without distinguishing between
// those cases.
type SessionResolver func(ctx context.Context, token string) (*Identity, error)

// ExtractToken pulls the session token from the request, preferring the
// Authorization bearer header and falling back to the access_token cookie.
// A header with a non-bearer scheme is ignored rather than shadowing a valid
// cookie. Returns "" when no credential is present.
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}

	return ""
}

// Auth middleware resolves the session token into an Identity and injects it
// into the request context. All failure modes collapse to a single 401 with
// no distinguishing detail.
func Auth(resolve SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				writeAuthError(w)
				return
			}

			identity, err := resolve(r.Context(), token)
			if err != nil {
				writeAuthError(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin middleware checks that the authenticated identity is an admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil || !identity.Admin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "FORBIDDEN",
				"message": "insufficient permissions",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext extracts the authenticated identity from the request
// context. Returns nil outside of the Auth middleware.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

// UserIDFromContext extracts the authenticated user's ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.ID
	}
	return ""
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "UNAUTHORIZED",
		"message": "not authenticated",
	})
}
