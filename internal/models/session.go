package models

import (
	"math"
	"time"
)

// SessionState is the position of a client session in the login state machine
type SessionState string

const (
	StateIdle              SessionState = "idle"
	StateSetupRequired     SessionState = "setup_required"
	StateVerifyRequired    SessionState = "verify_required"
	StateLocked            SessionState = "locked"
	StateResetRequested    SessionState = "reset_requested"
	StateTwoFactorDisabled SessionState = "two_factor_disabled"
	StateAuthenticated     SessionState = "authenticated"
)

// OutcomeKind discriminates an authentication outcome
type OutcomeKind string

const (
	OutcomeRejected          OutcomeKind = "rejected"
	OutcomeLocked            OutcomeKind = "locked"
	OutcomeNeedsSetup        OutcomeKind = "needs_setup"
	OutcomeNeedsVerification OutcomeKind = "needs_verification"
	OutcomeAuthenticated     OutcomeKind = "authenticated"
)

// Outcome is the ephemeral result of a login step. Failures are returned as
// errors (*RejectedError, *LockedError); Outcome carries the progress cases.
type Outcome struct {
	Kind         OutcomeKind     `json:"kind"`
	User         *UserProfile    `json:"user,omitempty"`
	SessionToken string          `json:"session_token,omitempty"`
	Setup        *TwoFactorSetup `json:"setup,omitempty"`

	// Secret is the enrolled TOTP secret for NeedsVerification; never serialised
	Secret string `json:"-"`
}

// LoginAttemptState is the per-client failed attempt counter and lockout
type LoginAttemptState struct {
	FailedAttempts int
	LockoutUntil   *time.Time
}

// IsLocked reports whether the lockout is still in force at now
func (s LoginAttemptState) IsLocked(now time.Time) bool {
	return s.LockoutUntil != nil && now.Before(*s.LockoutUntil)
}

// Remaining returns lockoutUntil - now, clamped at zero
func (s LoginAttemptState) Remaining(now time.Time) time.Duration {
	if s.LockoutUntil == nil {
		return 0
	}
	d := s.LockoutUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RemainingSeconds rounds the remaining lockout up to whole seconds
func (s LoginAttemptState) RemainingSeconds(now time.Time) int {
	return int(math.Ceil(s.Remaining(now).Seconds()))
}

// CaptchaProof is the token returned by the human-verification widget
type CaptchaProof struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the proof is present and unexpired at now
func (p CaptchaProof) Valid(now time.Time) bool {
	return p.Token != "" && now.Before(p.ExpiresAt)
}

// SessionRecord is what session persistence holds for an authenticated client
type SessionRecord struct {
	Token    string      `json:"token"`
	Profile  UserProfile `json:"profile"`
	IssuedAt time.Time   `json:"issued_at"`
}

// SessionSnapshot is a read-only view of a client session for the login screen
type SessionSnapshot struct {
	State             SessionState `json:"state"`
	FailedAttempts    int          `json:"failed_attempts"`
	AttemptsRemaining int          `json:"attempts_remaining"`
	LockoutUntil      *time.Time   `json:"lockout_until,omitempty"`
	RemainingSeconds  int          `json:"remaining_seconds"`
	CanSubmit         bool         `json:"can_submit"`
}
