package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// ClientCookieName identifies the browser's client session
const ClientCookieName = "portal_sid"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
	MaxAge   int    // seconds; 0 = browser session
}

type clientIDKey struct{}

// ClientSession ensures every request carries a client session id, issuing
// a new httpOnly cookie when the browser has none
func ClientSession(config CookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(ClientCookieName); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					sid = c.Value
				}
			}
			if sid == "" {
				sid = uuid.New().String()
				SetClientCookie(w, sid, config)
			}

			ctx := context.WithValue(r.Context(), clientIDKey{}, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIDFromContext returns the client session id set by ClientSession
func ClientIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(clientIDKey{}).(string)
	return sid
}

// SetClientCookie writes the client session cookie
func SetClientCookie(w http.ResponseWriter, sid string, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    sid,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   config.MaxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	})
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
