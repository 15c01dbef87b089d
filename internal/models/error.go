package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login flow errors
	ErrMissingCaptcha     = errors.New("captcha proof missing or expired")
	ErrCaptchaRejected    = errors.New("captcha proof rejected")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrServiceUnavailable = errors.New("authentication service unavailable")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrInvalidState       = errors.New("operation not allowed in current session state")

	// Two-factor errors
	ErrInvalidCode         = errors.New("invalid one-time code")
	ErrCodeThrottled       = errors.New("too many one-time code attempts")
	ErrTwoFactorNotEnabled = errors.New("two-factor authentication not enabled")
	ErrInvalidOrExpired    = errors.New("reset token invalid or expired")

	// ErrDeliveryFailed means a reset link was issued but not accepted by
	// the mail channel. It is a service error.
	ErrDeliveryFailed = fmt.Errorf("%w: reset link not delivered", ErrServiceUnavailable)

	// Account state errors
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrAccountSuspended = errors.New("account is suspended")
)

// LockedError is returned while the client lockout window is in force
type LockedError struct {
	RemainingSeconds int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("login locked for %d more seconds", e.RemainingSeconds)
}

// RejectedError is returned for a confirmed bad credential below the lockout threshold
type RejectedError struct {
	AttemptsRemaining int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempts remaining", e.AttemptsRemaining)
}
