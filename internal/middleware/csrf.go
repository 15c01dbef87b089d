package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"

	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFConfig controls the CSRF cookie attributes
type CSRFConfig struct {
	Domain string
	Secure bool
}

// CSRFProtection implements the double-submit cookie pattern. Every
// response without a CSRF cookie gets one; state-changing requests must echo
// the cookie value in the X-CSRF-Token header. The cookie is readable by
// script so the login page can copy it.
func CSRFProtection(config CSRFConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookieToken string
			if c, err := r.Cookie(CSRFCookieName); err == nil {
				cookieToken = c.Value
			}

			if !isStateChangingMethod(r.Method) {
				if cookieToken == "" {
					if err := issueCSRFCookie(w, config); err != nil {
						logger.Error("failed to issue csrf token", slog.Any("error", err))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get(CSRFHeaderName)
			if cookieToken == "" || headerToken == "" ||
				subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
				logger.Warn("csrf token validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("cookie_present", cookieToken != ""),
					slog.Bool("header_present", headerToken != ""))
				pkghttp.WriteForbidden(w, "CSRF token missing or invalid")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func issueCSRFCookie(w http.ResponseWriter, config CSRFConfig) error {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    hex.EncodeToString(b),
		Path:     "/",
		Domain:   config.Domain,
		Secure:   config.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
