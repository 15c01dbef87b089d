package auth

import (
	"context"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
)

// CredentialVerifier checks a password and owns the outbound email channel.
// Verify returns models.ErrInvalidCredentials only for a confirmed bad
// credential; every other error is treated as a service failure.
// VerifyCaptcha returns models.ErrCaptchaRejected for a refused proof.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password, captchaToken string) (string, error)
	VerifyCaptcha(ctx context.Context, captchaToken string) error
	SendOneTimeLoginLink(ctx context.Context, email string, opts LoginLinkOptions) error
}

// LoginLinkOptions controls an emailed one-time link. An empty
// CaptchaToken means the caller has already verified the captcha.
type LoginLinkOptions struct {
	RedirectTarget string
	CaptchaToken   string
	AllowNewUser   bool
}

// UserDirectory reads users and writes their two-factor fields
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*models.User, error)
	UpdateTwoFactorFields(ctx context.Context, id string, update models.TwoFactorUpdate) error
}

// SessionStore persists the authenticated session token and profile.
// Load returns models.ErrNotFound when nothing is stored.
type SessionStore interface {
	Save(ctx context.Context, sid string, record models.SessionRecord, ttl time.Duration) error
	Load(ctx context.Context, sid string) (*models.SessionRecord, error)
	Delete(ctx context.Context, sid string) error
}

// LockoutStore keeps lockoutUntil across reloads. GetLockout returns nil
// when no lockout is stored.
type LockoutStore interface {
	GetLockout(ctx context.Context, sid string) (*time.Time, error)
	SetLockout(ctx context.Context, sid string, until time.Time) error
	ClearLockout(ctx context.Context, sid string) error
}
