package auth

import (
	"testing"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret-with-at-least-32-bytes!!", 15*time.Minute)

	token, err := tm.GenerateSessionToken("user-1", "a@x.com", "officer")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeSession, claims.Type)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "officer", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_UniqueJTI(t *testing.T) {
	tm := NewTokenManager("test-secret-with-at-least-32-bytes!!", time.Minute)

	a, err := tm.GenerateSessionToken("user-1", "a@x.com", "officer")
	require.NoError(t, err)
	b, err := tm.GenerateSessionToken("user-1", "a@x.com", "officer")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret-with-at-least-32-bytes!!", time.Minute)
	issued := time.Now()
	tm.now = func() time.Time { return issued }

	token, err := tm.GenerateSessionToken("user-1", "a@x.com", "officer")
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-one-secret-one-secret-one!!", time.Minute).
		GenerateSessionToken("user-1", "a@x.com", "officer")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-two-secret-two-secret-two!!", time.Minute).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsOtherTokenTypes(t *testing.T) {
	secret := "test-secret-with-at-least-32-bytes!!"
	claims := &models.TokenClaims{
		Type:   "refresh",
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewTokenManager(secret, time.Minute).ValidateToken(token)
	assert.Error(t, err)
}
