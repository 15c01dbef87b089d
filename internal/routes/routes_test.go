package routes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/auth"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/cache"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/handlers"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/metrics"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/middleware"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct{ err error }

func (f fakeDB) HealthCheck(ctx context.Context) error { return f.err }

func newRouter(t *testing.T, session handlers.LoginSession, db HealthChecker) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tm := auth.NewTokenManager("test-secret-with-at-least-32-bytes!!", time.Hour)
	h := handlers.NewAuthHandler(handlers.StaticProvider(session), 2*time.Minute, logger)

	reg := prometheus.NewRegistry()
	metrics.New(reg).ObserveLogin("rejected")

	router := chi.NewRouter()
	RegisterRoutes(router, h, tm, cache.NewMemorySessionStore(), Options{
		RateLimit: middleware.RateLimitConfig{RequestsPerMinute: 100},
	}, logger)
	RegisterOps(router, db, reg)
	return router
}

func TestAuthRoutes_IssueClientAndCSRFCookies(t *testing.T) {
	router := newRouter(t, &handlers.MockLoginSession{}, fakeDB{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/auth/login/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	names := map[string]bool{}
	for _, c := range w.Result().Cookies() {
		names[c.Name] = true
	}
	assert.True(t, names[auth.ClientCookieName])
	assert.True(t, names[middleware.CSRFCookieName])
}

func TestAuthRoutes_LoginRequiresCSRF(t *testing.T) {
	submitted := false
	session := &handlers.MockLoginSession{
		SubmitCredentialsFunc: func(ctx context.Context, email, password string, captcha models.CaptchaProof) (*models.Outcome, error) {
			submitted = true
			return &models.Outcome{Kind: models.OutcomeNeedsVerification}, nil
		},
	}
	router := newRouter(t, session, fakeDB{})
	body := handlers.LoginRequest{Email: "officer@example.com", Password: "Records#Desk2026", CaptchaToken: "t"}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, handlers.NewTestRequest(t, "POST", "/auth/login", body))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, submitted)

	req := handlers.NewTestRequest(t, "POST", "/auth/login", body)
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "tok"})
	req.Header.Set(middleware.CSRFHeaderName, "tok")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, submitted)
}

func TestAuthRoutes_MeRequiresBearer(t *testing.T) {
	router := newRouter(t, &handlers.MockLoginSession{}, fakeDB{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/auth/me", nil))

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         fakeDB
		wantStatus int
	}{
		{"up", fakeDB{}, http.StatusOK},
		{"down", fakeDB{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(t, &handlers.MockLoginSession{}, tt.db)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(t, &handlers.MockLoginSession{}, fakeDB{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "portal_auth_")
}
