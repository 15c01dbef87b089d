package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/auth"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	pkgauth "github.com/OJT-CyberCrime/ciphers-sub000/pkg/auth"
	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Records#Desk2026"

type verifierFixture struct {
	users   *MockUserLookup
	captcha *MockCaptchaVerifier
	limiter *MockLoginLimiter
	mailer  *MockMailer
	tokens  *auth.TokenManager
	v       *PasswordVerifier
}

func newVerifierFixture(t *testing.T, user *models.User) *verifierFixture {
	t.Helper()
	f := &verifierFixture{
		users: &MockUserLookup{
			FindByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
				if user != nil && email == user.Email {
					cp := *user
					return &cp, nil
				}
				return nil, models.ErrNotFound
			},
		},
		captcha: &MockCaptchaVerifier{},
		limiter: &MockLoginLimiter{},
		mailer:  &MockMailer{},
		tokens:  auth.NewTokenManager("test-secret-with-at-least-32-bytes!!", time.Hour),
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	f.v = NewPasswordVerifier(f.users, f.captcha, f.limiter, f.tokens, f.mailer, nil, logger, nil,
		PasswordVerifierConfig{DummyHashCost: bcrypt.MinCost})
	return f
}

func officer(t *testing.T) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPasswordWithCost(testPassword, bcrypt.MinCost)
	require.NoError(t, err)
	return NewTestUser("user-1", "officer@example.com", hash)
}

func clientCtx() context.Context {
	return pkghttp.WithClientInfo(context.Background(), pkghttp.ClientInfo{IPAddress: "10.1.2.3", UserAgent: "test-agent"})
}

func TestPasswordVerifier_Verify_Success(t *testing.T) {
	f := newVerifierFixture(t, officer(t))

	token, err := f.v.Verify(clientCtx(), "officer@example.com", testPassword, "captcha-ok")

	require.NoError(t, err)
	claims, err := f.tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "officer", claims.Role)

	require.Len(t, f.limiter.Recorded, 1)
	assert.True(t, f.limiter.Recorded[0].Success)
	assert.Equal(t, "10.1.2.3", f.limiter.Recorded[0].IPAddress)
}

func TestPasswordVerifier_Verify_RejectsUniformly(t *testing.T) {
	suspended := officer(t)
	suspended.Status = "suspended"

	tests := []struct {
		name       string
		user       *models.User
		email      string
		password   string
		wantReason string
	}{
		{"wrong password", officer(t), "officer@example.com", "Records#Desk2027", models.FailureReasonInvalidCredentials},
		{"unknown email", officer(t), "nobody@example.com", testPassword, models.FailureReasonUnknownEmail},
		{"suspended account", suspended, "officer@example.com", testPassword, models.FailureReasonAccountBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVerifierFixture(t, tt.user)

			token, err := f.v.Verify(clientCtx(), tt.email, tt.password, "captcha-ok")

			assert.Empty(t, token)
			assert.Equal(t, models.ErrInvalidCredentials, err)
			require.Len(t, f.limiter.Recorded, 1)
			assert.False(t, f.limiter.Recorded[0].Success)
			assert.Equal(t, tt.wantReason, f.limiter.Recorded[0].Reason)
		})
	}
}

func TestPasswordVerifier_Verify_CaptchaRejected(t *testing.T) {
	f := newVerifierFixture(t, officer(t))
	var gotIP string
	f.captcha.VerifyFunc = func(ctx context.Context, token, remoteIP string) error {
		gotIP = remoteIP
		return models.ErrCaptchaRejected
	}

	_, err := f.v.Verify(clientCtx(), "officer@example.com", testPassword, "stale")

	assert.ErrorIs(t, err, models.ErrCaptchaRejected)
	assert.Equal(t, "10.1.2.3", gotIP)
	assert.Empty(t, f.limiter.Recorded)
}

func TestPasswordVerifier_Verify_CaptchaOutageIsServiceError(t *testing.T) {
	f := newVerifierFixture(t, officer(t))
	f.captcha.VerifyFunc = func(ctx context.Context, token, remoteIP string) error {
		return errors.New("dial tcp: timeout")
	}

	_, err := f.v.Verify(clientCtx(), "officer@example.com", testPassword, "token")

	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
	assert.NotErrorIs(t, err, models.ErrCaptchaRejected)
}

func TestPasswordVerifier_Verify_RateLimited(t *testing.T) {
	f := newVerifierFixture(t, officer(t))
	f.limiter.CheckFunc = func(ctx context.Context, email, ip, ua string) error {
		return &RateLimitedError{Scope: "email", RetryAfter: time.Minute}
	}

	_, err := f.v.Verify(clientCtx(), "officer@example.com", testPassword, "captcha-ok")

	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
	assert.Empty(t, f.limiter.Recorded)
}

func TestPasswordVerifier_Verify_DirectoryOutage(t *testing.T) {
	f := newVerifierFixture(t, nil)
	f.users.FindByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.v.Verify(clientCtx(), "officer@example.com", testPassword, "captcha-ok")

	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Empty(t, f.limiter.Recorded)
}

func TestPasswordVerifier_Verify_NilCaptchaSkipsCheck(t *testing.T) {
	f := newVerifierFixture(t, officer(t))
	f.v.captcha = nil

	_, err := f.v.Verify(context.Background(), "officer@example.com", testPassword, "")

	assert.NoError(t, err)
}

func TestPasswordVerifier_SendOneTimeLoginLink(t *testing.T) {
	f := newVerifierFixture(t, officer(t))

	err := f.v.SendOneTimeLoginLink(clientCtx(), "officer@example.com", auth.LoginLinkOptions{
		RedirectTarget: "https://portal.example/two-factor/reset?token=abc",
		CaptchaToken:   "captcha-ok",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"officer@example.com"}, f.mailer.Sent)
	assert.Equal(t, []string{"https://portal.example/two-factor/reset?token=abc"}, f.mailer.Links)
}

func TestPasswordVerifier_SendOneTimeLoginLink_NoNewUsers(t *testing.T) {
	f := newVerifierFixture(t, officer(t))

	err := f.v.SendOneTimeLoginLink(clientCtx(), "stranger@example.com", auth.LoginLinkOptions{
		RedirectTarget: "https://portal.example/login",
	})

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, f.mailer.Sent)
}

func TestPasswordVerifier_SendOneTimeLoginLink_AllowNewUser(t *testing.T) {
	f := newVerifierFixture(t, nil)

	err := f.v.SendOneTimeLoginLink(clientCtx(), "new@example.com", auth.LoginLinkOptions{
		RedirectTarget: "https://portal.example/login",
		AllowNewUser:   true,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"new@example.com"}, f.mailer.Sent)
}

func TestPasswordVerifier_SendOneTimeLoginLink_CaptchaRejected(t *testing.T) {
	f := newVerifierFixture(t, officer(t))
	f.captcha.VerifyFunc = func(ctx context.Context, token, remoteIP string) error {
		return models.ErrCaptchaRejected
	}

	err := f.v.SendOneTimeLoginLink(clientCtx(), "officer@example.com", auth.LoginLinkOptions{
		RedirectTarget: "x",
		CaptchaToken:   "junk",
	})

	assert.ErrorIs(t, err, models.ErrCaptchaRejected)
	assert.Empty(t, f.mailer.Sent)
}

func TestPasswordVerifier_SendOneTimeLoginLink_PreverifiedSkipsCaptcha(t *testing.T) {
	f := newVerifierFixture(t, officer(t))
	f.captcha.VerifyFunc = func(ctx context.Context, token, remoteIP string) error {
		t.Fatal("captcha must not be re-verified")
		return nil
	}

	err := f.v.SendOneTimeLoginLink(clientCtx(), "officer@example.com", auth.LoginLinkOptions{RedirectTarget: "x"})

	require.NoError(t, err)
	assert.Equal(t, []string{"officer@example.com"}, f.mailer.Sent)
}

func TestPasswordVerifier_VerifyCaptcha(t *testing.T) {
	f := newVerifierFixture(t, officer(t))
	var gotToken, gotIP string
	f.captcha.VerifyFunc = func(ctx context.Context, token, remoteIP string) error {
		gotToken, gotIP = token, remoteIP
		if token == "junk" {
			return models.ErrCaptchaRejected
		}
		return nil
	}

	require.NoError(t, f.v.VerifyCaptcha(clientCtx(), "captcha-ok"))
	assert.Equal(t, "captcha-ok", gotToken)
	assert.Equal(t, pkghttp.ClientInfoFromContext(clientCtx()).IPAddress, gotIP)

	assert.ErrorIs(t, f.v.VerifyCaptcha(clientCtx(), "junk"), models.ErrCaptchaRejected)
}
