package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfHandler() http.Handler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return CSRFProtection(CSRFConfig{}, logger)(okHandler)
}

func TestCSRF_IssuesCookieOnSafeRequest(t *testing.T) {
	w := httptest.NewRecorder()
	csrfHandler().ServeHTTP(w, httptest.NewRequest("GET", "/auth/login/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CSRFCookieName, cookies[0].Name)
	assert.Len(t, cookies[0].Value, 64)
	assert.False(t, cookies[0].HttpOnly)
}

func TestCSRF_KeepsExistingCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	csrfHandler().ServeHTTP(w, req)

	assert.Empty(t, w.Result().Cookies())
}

func TestCSRF_StateChangingRequests(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		header     string
		wantStatus int
	}{
		{"matching", "abc123", "abc123", http.StatusOK},
		{"missing header", "abc123", "", http.StatusForbidden},
		{"missing cookie", "", "abc123", http.StatusForbidden},
		{"mismatch", "abc123", "abc124", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/auth/login", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			w := httptest.NewRecorder()
			csrfHandler().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
