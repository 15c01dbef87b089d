package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders_Baseline(t *testing.T) {
	req := httptest.NewRequest("GET", "/auth/login/status", nil)
	w := httptest.NewRecorder()

	SecurityHeaders(SecurityHeadersConfig{Env: "development"})(okHandler).ServeHTTP(w, req)

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "no-referrer"},
		{"Cache-Control", "no-store"},
		{"Content-Security-Policy", apiCSP},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, w.Header().Get(tt.header), tt.header)
	}
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTSOnlyOverHTTPSInProduction(t *testing.T) {
	mw := SecurityHeaders(SecurityHeadersConfig{Env: "production"})

	plain := httptest.NewRecorder()
	mw(okHandler).ServeHTTP(plain, httptest.NewRequest("GET", "/", nil))
	assert.Empty(t, plain.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	secure := httptest.NewRecorder()
	mw(okHandler).ServeHTTP(secure, req)
	assert.Contains(t, secure.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}
