package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
)

type contextKey string

const (
	claimsContextKey  contextKey = "claims"
	profileContextKey contextKey = "profile"
)

// RequireSession admits requests whose Bearer token is the one persisted for
// the client session. A stored record that does not match the presented
// token is treated as a failed session and erased.
func RequireSession(tm *TokenManager, store SessionStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}
			token := parts[1]

			claims, err := tm.ValidateToken(token)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			sid := ClientIDFromContext(r.Context())
			if sid == "" {
				pkghttp.WriteUnauthorized(w, "missing client session")
				return
			}

			record, err := store.Load(r.Context(), sid)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "session not found")
					return
				}
				pkghttp.WriteServiceUnavailable(w, "unable to verify session")
				return
			}

			if record.Token != token || record.Profile.ID != claims.UserID {
				_ = store.Delete(r.Context(), sid)
				pkghttp.WriteUnauthorized(w, "session mismatch")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			ctx = context.WithValue(ctx, profileContextKey, record.Profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the token claims set by RequireSession
func ClaimsFromContext(ctx context.Context) *models.TokenClaims {
	claims, _ := ctx.Value(claimsContextKey).(*models.TokenClaims)
	return claims
}

// ProfileFromContext returns the stored profile set by RequireSession
func ProfileFromContext(ctx context.Context) (models.UserProfile, bool) {
	profile, ok := ctx.Value(profileContextKey).(models.UserProfile)
	return profile, ok
}
