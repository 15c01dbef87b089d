package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit returns the per-IP budget for the login endpoints
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 30}
}

// RateLimitByIP limits requests per client IP. The IP recorded by
// pkghttp.ClientInfoMiddleware is preferred so trusted proxy rules apply.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(clientIPKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests. Please slow down.")
		}),
	)
}

func clientIPKey(r *http.Request) (string, error) {
	if ip := pkghttp.ClientInfoFromContext(r.Context()).IPAddress; ip != "" {
		return ip, nil
	}
	return httprate.KeyByIP(r)
}
