package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// StaticProvider hands the same session to every client, for tests
func StaticProvider(s LoginSession) SessionProvider {
	return func(ctx context.Context, sid string) LoginSession { return s }
}

// MockLoginSession implements LoginSession for testing
type MockLoginSession struct {
	SubmitCredentialsFunc       func(ctx context.Context, email, password string, captcha models.CaptchaProof) (*models.Outcome, error)
	CompleteTwoFactorSetupFunc  func(ctx context.Context, userRef, code string) (*models.Outcome, error)
	CompleteTwoFactorVerifyFunc func(ctx context.Context, userRef, code string) (*models.Outcome, error)
	RequestTwoFactorResetFunc   func(ctx context.Context, email string, captcha models.CaptchaProof) (time.Time, error)
	ConsumeTwoFactorResetFunc   func(ctx context.Context, token string) (string, error)
	DisableTwoFactorFunc        func(ctx context.Context, userRef string) error
	CancelFunc                  func() error
	LogoutFunc                  func(ctx context.Context) error
	SnapshotFunc                func(ctx context.Context) models.SessionSnapshot
}

func (m *MockLoginSession) SubmitCredentials(ctx context.Context, email, password string, captcha models.CaptchaProof) (*models.Outcome, error) {
	if m.SubmitCredentialsFunc == nil {
		return nil, &models.RejectedError{AttemptsRemaining: 2}
	}
	return m.SubmitCredentialsFunc(ctx, email, password, captcha)
}

func (m *MockLoginSession) CompleteTwoFactorSetup(ctx context.Context, userRef, code string) (*models.Outcome, error) {
	if m.CompleteTwoFactorSetupFunc == nil {
		return nil, models.ErrInvalidState
	}
	return m.CompleteTwoFactorSetupFunc(ctx, userRef, code)
}

func (m *MockLoginSession) CompleteTwoFactorVerify(ctx context.Context, userRef, code string) (*models.Outcome, error) {
	if m.CompleteTwoFactorVerifyFunc == nil {
		return nil, models.ErrInvalidState
	}
	return m.CompleteTwoFactorVerifyFunc(ctx, userRef, code)
}

func (m *MockLoginSession) RequestTwoFactorReset(ctx context.Context, email string, captcha models.CaptchaProof) (time.Time, error) {
	if m.RequestTwoFactorResetFunc == nil {
		return time.Time{}, models.ErrNotFound
	}
	return m.RequestTwoFactorResetFunc(ctx, email, captcha)
}

func (m *MockLoginSession) ConsumeTwoFactorReset(ctx context.Context, token string) (string, error) {
	if m.ConsumeTwoFactorResetFunc == nil {
		return "", models.ErrInvalidOrExpired
	}
	return m.ConsumeTwoFactorResetFunc(ctx, token)
}

func (m *MockLoginSession) DisableTwoFactor(ctx context.Context, userRef string) error {
	if m.DisableTwoFactorFunc == nil {
		return nil
	}
	return m.DisableTwoFactorFunc(ctx, userRef)
}

func (m *MockLoginSession) Cancel() error {
	if m.CancelFunc == nil {
		return nil
	}
	return m.CancelFunc()
}

func (m *MockLoginSession) Logout(ctx context.Context) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx)
}

func (m *MockLoginSession) Snapshot(ctx context.Context) models.SessionSnapshot {
	if m.SnapshotFunc == nil {
		return models.SessionSnapshot{State: models.StateIdle, AttemptsRemaining: 3, CanSubmit: true}
	}
	return m.SnapshotFunc(ctx)
}
