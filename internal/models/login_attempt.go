package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginAttempt is one server-side record of a credential check
type LoginAttempt struct {
	ID                string    `db:"id"`
	Email             string    `db:"email"`
	IPAddress         string    `db:"ip_address"`
	UserAgent         string    `db:"user_agent"`
	AttemptTime       time.Time `db:"attempt_time"`
	Success           bool      `db:"success"`
	FailureReason     *string   `db:"failure_reason"`
	DeviceFingerprint string    `db:"device_fingerprint"`
	ExpiresAt         time.Time `db:"expires_at"`
}

// Failure reasons recorded in login_attempts
const (
	FailureReasonInvalidCredentials = "invalid_credentials"
	FailureReasonUnknownEmail       = "unknown_email"
	FailureReasonAccountBlocked     = "account_blocked"
)

// TokenClaims are the claims carried by a portal session token
type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenTypeSession marks tokens issued after a completed login
const TokenTypeSession = "session"
