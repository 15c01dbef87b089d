package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/auth"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	pkgauth "github.com/OJT-CyberCrime/ciphers-sub000/pkg/auth"
	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
	pkglogger "github.com/OJT-CyberCrime/ciphers-sub000/pkg/logger"
)

// UserLookup is the read side of the user directory
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// CaptchaVerifier checks a captcha proof with its provider
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// LoginLimiter is the server-side attempt limiter
type LoginLimiter interface {
	CheckRateLimit(ctx context.Context, email, ipAddress, userAgent string) error
	RecordLoginAttempt(ctx context.Context, email, ipAddress, userAgent string, success bool, failureReason *string) error
}

// SessionTokenIssuer signs the token handed out after a good password
type SessionTokenIssuer interface {
	GenerateSessionToken(userID, email, role string) (string, error)
}

// PasswordVerifierConfig tunes the verifier
type PasswordVerifierConfig struct {
	// DummyHashCost is the bcrypt cost of the hash compared against when the
	// email is unknown. It should match stored hashes. 0 means BcryptCost.
	DummyHashCost int
}

// PasswordVerifier is the portal's credential verifier: captcha, server-side
// rate limit, bcrypt comparison and session token issue, plus delivery of
// one-time links
type PasswordVerifier struct {
	users   UserLookup
	captcha CaptchaVerifier
	limiter LoginLimiter
	tokens  SessionTokenIssuer
	mailer  Mailer
	timing  *auth.TimingDelay
	logger  *slog.Logger
	audit   *pkglogger.AuditLogger
	config  PasswordVerifierConfig

	dummyOnce sync.Once
	dummyHash string
}

var _ auth.CredentialVerifier = (*PasswordVerifier)(nil)

// NewPasswordVerifier wires a verifier. A nil captcha disables captcha
// checks, which is only done outside production.
func NewPasswordVerifier(
	users UserLookup,
	captcha CaptchaVerifier,
	limiter LoginLimiter,
	tokens SessionTokenIssuer,
	mailer Mailer,
	timing *auth.TimingDelay,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
	config PasswordVerifierConfig,
) *PasswordVerifier {
	if config.DummyHashCost == 0 {
		config.DummyHashCost = pkgauth.BcryptCost
	}
	return &PasswordVerifier{
		users:   users,
		captcha: captcha,
		limiter: limiter,
		tokens:  tokens,
		mailer:  mailer,
		timing:  timing,
		logger:  logger,
		audit:   audit,
		config:  config,
	}
}

// Verify returns a signed session token for a correct password.
// models.ErrInvalidCredentials covers unknown emails, wrong passwords and
// blocked accounts alike so the response never reveals which.
func (v *PasswordVerifier) Verify(ctx context.Context, email, password, captchaToken string) (string, error) {
	start := time.Now()
	client := pkghttp.ClientInfoFromContext(ctx)

	if err := v.checkCaptcha(ctx, captchaToken, client.IPAddress); err != nil {
		return "", err
	}

	if err := v.limiter.CheckRateLimit(ctx, email, client.IPAddress, client.UserAgent); err != nil {
		v.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_rate_limited",
			Email:         email,
			IPAddress:     client.IPAddress,
			FailureReason: err.Error(),
		})
		return "", err
	}

	user, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return "", fmt.Errorf("failed to look up user: %w", err)
		}
		// Spend a bcrypt comparison so unknown emails cost the same as known ones
		_ = pkgauth.ComparePassword(v.getDummyHash(), password)
		return "", v.reject(ctx, start, email, client, models.FailureReasonUnknownEmail)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", v.reject(ctx, start, email, client, models.FailureReasonInvalidCredentials)
	}

	if user.Status != "active" {
		return "", v.reject(ctx, start, email, client, models.FailureReasonAccountBlocked)
	}

	token, err := v.tokens.GenerateSessionToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}

	if err := v.limiter.RecordLoginAttempt(ctx, email, client.IPAddress, client.UserAgent, true, nil); err != nil {
		v.logger.Warn("failed to record login attempt", slog.Any("error", err))
	}
	v.timing.WaitFrom(start, true)

	return token, nil
}

func (v *PasswordVerifier) reject(ctx context.Context, start time.Time, email string, client pkghttp.ClientInfo, reason string) error {
	if err := v.limiter.RecordLoginAttempt(ctx, email, client.IPAddress, client.UserAgent, false, &reason); err != nil {
		v.logger.Warn("failed to record login attempt", slog.Any("error", err))
	}
	v.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "password_rejected",
		Email:         email,
		IPAddress:     client.IPAddress,
		FailureReason: reason,
	})
	v.timing.WaitFrom(start, false)
	return models.ErrInvalidCredentials
}

func (v *PasswordVerifier) checkCaptcha(ctx context.Context, token, remoteIP string) error {
	if v.captcha == nil {
		return nil
	}
	if err := v.captcha.Verify(ctx, token, remoteIP); err != nil {
		if errors.Is(err, models.ErrCaptchaRejected) || errors.Is(err, models.ErrMissingCaptcha) {
			return err
		}
		return fmt.Errorf("captcha verification unavailable: %w", err)
	}
	return nil
}

// VerifyCaptcha checks a captcha token on its own, for flows that must
// gate on it before touching any account
func (v *PasswordVerifier) VerifyCaptcha(ctx context.Context, captchaToken string) error {
	return v.checkCaptcha(ctx, captchaToken, pkghttp.ClientInfoFromContext(ctx).IPAddress)
}

// SendOneTimeLoginLink emails opts.RedirectTarget to email. With
// AllowNewUser false the address must belong to an existing user. The
// captcha is checked only when opts carries a token.
func (v *PasswordVerifier) SendOneTimeLoginLink(ctx context.Context, email string, opts auth.LoginLinkOptions) error {
	if opts.CaptchaToken != "" {
		if err := v.VerifyCaptcha(ctx, opts.CaptchaToken); err != nil {
			return err
		}
	}

	if !opts.AllowNewUser {
		if _, err := v.users.FindByEmail(ctx, email); err != nil {
			return err
		}
	}

	if opts.RedirectTarget == "" {
		return fmt.Errorf("%w: login link has no target", models.ErrBadRequest)
	}

	return v.mailer.SendLoginLink(ctx, email, opts.RedirectTarget)
}

// getDummyHash hashes a random throwaway password once, at the configured cost
func (v *PasswordVerifier) getDummyHash() string {
	v.dummyOnce.Do(func() {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		hash, err := pkgauth.HashPasswordWithCost(hex.EncodeToString(buf), v.config.DummyHashCost)
		if err != nil {
			v.logger.Error("failed to build dummy password hash", slog.Any("error", err))
			return
		}
		v.dummyHash = hash
	})
	return v.dummyHash
}
