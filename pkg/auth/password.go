package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 14
	MinPasswordLen = 12 // staff accounts
	MaxPasswordLen = 72 // bcrypt ignores bytes past 72
)

// PasswordValidationError holds the failed rules; Error never lists them
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	return "invalid password"
}

var commonPasswords = map[string]bool{
	"password1234":  true,
	"123456789012":  true,
	"qwertyuiop12":  true,
	"letmein12345":  true,
	"welcome12345":  true,
	"changeme1234":  true,
	"passw0rd1234":  true,
	"administrator": true,
	"records12345":  true,
	"recordsportal": true,
	"police123456":  true,
	"officer12345":  true,
}

// HashPassword hashes at BcryptCost
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, BcryptCost)
}

// HashPasswordWithCost hashes at an explicit bcrypt cost
func HashPasswordWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// ComparePassword returns nil only when password matches hashedPassword
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword checks a new staff password. It is applied to the
// bootstrap admin; login never validates, it only compares.
func ValidatePassword(password string) error {
	var failed []string

	if len(password) < MinPasswordLen {
		failed = append(failed, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		failed = append(failed, fmt.Sprintf("must be at most %d bytes", MaxPasswordLen))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		failed = append(failed, "needs an uppercase letter")
	}
	if !hasLower {
		failed = append(failed, "needs a lowercase letter")
	}
	if !hasDigit {
		failed = append(failed, "needs a digit")
	}
	if !hasSpecial {
		failed = append(failed, "needs a special character")
	}

	if commonPasswords[strings.ToLower(stripSymbols(password))] {
		failed = append(failed, "is too common")
	}

	if len(failed) > 0 {
		return &PasswordValidationError{Errors: failed}
	}
	return nil
}

// stripSymbols drops punctuation so "Password1234!" still matches the list
func stripSymbols(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
}
