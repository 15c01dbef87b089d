package auth

import (
	"fmt"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and validates portal session tokens
type TokenManager struct {
	secret string
	expiry time.Duration
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: secret,
		expiry: expiry,
		now:    time.Now,
	}
}

// Expiry is the lifetime of issued tokens
func (tm *TokenManager) Expiry() time.Duration {
	return tm.expiry
}

// GenerateSessionToken signs a session token with a unique JTI
func (tm *TokenManager) GenerateSessionToken(userID, email, role string) (string, error) {
	now := tm.now()
	claims := &models.TokenClaims{
		Type:   models.TokenTypeSession,
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}
	if claims.Type != models.TokenTypeSession {
		return nil, fmt.Errorf("invalid token type %q", claims.Type)
	}

	return claims, nil
}
