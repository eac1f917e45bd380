package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
// A package-private key type means only this package can read or write the
// identity value — no collision with other packages' context values.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth is a middleware that enforces bearer-token authentication.
//
// It reads the JWT from the Authorization header ("Bearer <token>"),
// validates it, and stores the caller's Identity in the request context.
// Missing or invalid tokens get 401 and the chain stops.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identityFromRequest(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated identity from the request
// context. Returns (Identity{}, false) if the request is anonymous.
//
// On a RequireAuth-protected route the second return is always true.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// identityFromRequest extracts and validates the bearer token.
func identityFromRequest(r *http.Request, tokens *TokenService) (Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Identity{}, errors.New("auth: missing Authorization header")
	}

	// "Bearer" is case-insensitive per RFC 6750.
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return Identity{}, errors.New("auth: Authorization header is not a bearer token")
	}

	return tokens.Validate(strings.TrimSpace(header[len(prefix):]))
}
