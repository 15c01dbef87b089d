package models

import (
	"errors"
	"time"
)

// TwoFactorUpdate is a partial update of a user's two-factor fields.
// The reset token and its expiry form one unit: SetReset writes both.
type TwoFactorUpdate struct {
	Enabled *bool

	SetSecret bool
	Secret    *string

	SetReset     bool
	ResetToken   *string
	ResetExpires *time.Time
}

// EnableTwoFactor marks enrollment complete with the given sealed secret
func EnableTwoFactor(sealedSecret string) TwoFactorUpdate {
	enabled := true
	return TwoFactorUpdate{
		Enabled:   &enabled,
		SetSecret: true,
		Secret:    &sealedSecret,
	}
}

// IssueReset stores a new reset token hash, replacing any previous one
func IssueReset(tokenHash string, expires time.Time) TwoFactorUpdate {
	return TwoFactorUpdate{
		SetReset:     true,
		ResetToken:   &tokenHash,
		ResetExpires: &expires,
	}
}

// ClearReset drops a reset token pair without touching enrollment
func ClearReset() TwoFactorUpdate {
	return TwoFactorUpdate{SetReset: true}
}

// DisableTwoFactor clears enrollment and any reset token in one write
func DisableTwoFactor() TwoFactorUpdate {
	disabled := false
	return TwoFactorUpdate{
		Enabled:   &disabled,
		SetSecret: true,
		SetReset:  true,
	}
}

// IsEmpty reports whether the update would change nothing
func (u TwoFactorUpdate) IsEmpty() bool {
	return u.Enabled == nil && !u.SetSecret && !u.SetReset
}

// Validate enforces the reset pair invariant
func (u TwoFactorUpdate) Validate() error {
	if u.IsEmpty() {
		return errors.New("two-factor update has no fields")
	}
	if !u.SetReset && (u.ResetToken != nil || u.ResetExpires != nil) {
		return errors.New("reset fields given without SetReset")
	}
	if u.SetReset && (u.ResetToken == nil) != (u.ResetExpires == nil) {
		return errors.New("reset token and expiry must be written together")
	}
	if !u.SetSecret && u.Secret != nil {
		return errors.New("secret given without SetSecret")
	}
	return nil
}

// Apply writes the update onto an in-memory user record
func (u TwoFactorUpdate) Apply(user *User) {
	if u.Enabled != nil {
		user.TwoFactorEnabled = *u.Enabled
	}
	if u.SetSecret {
		user.TwoFactorSecret = u.Secret
	}
	if u.SetReset {
		user.ResetToken = u.ResetToken
		user.ResetExpires = u.ResetExpires
	}
}

// TwoFactorSetup carries the provisioning data shown on the enrollment screen
type TwoFactorSetup struct {
	Secret     string `json:"secret"`      // base32, for manual entry
	OTPAuthURL string `json:"otpauth_url"` // otpauth:// provisioning URI
	QRCode     string `json:"qr_code"`     // PNG data URL
}
