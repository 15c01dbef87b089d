package models

import (
	"time"
)

// User is a portal staff account as stored in the user directory
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string // "officer", "records_clerk", "admin"
	Status       string // "active", "suspended", "disabled"

	TwoFactorSecret  *string // sealed TOTP secret, nil until enrollment
	TwoFactorEnabled bool

	// ResetToken holds the SHA-256 hash of the emailed reset token.
	// ResetToken and ResetExpires are always both nil or both set.
	ResetToken   *string
	ResetExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProfile is the display-safe projection kept in session persistence
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Profile returns the display-safe view of the user
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// HasPendingReset reports whether a reset token has been issued and not yet cleared
func (u *User) HasPendingReset() bool {
	return u.ResetToken != nil || u.ResetExpires != nil
}
