package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRateLimitRepository implements RateLimitRepository for testing
type MockRateLimitRepository struct {
	emailFailures  map[string]int
	ipFailures     map[string]int
	deviceFailures int
	recorded       []*models.LoginAttempt
	countErr       error
}

func NewMockRateLimitRepository() *MockRateLimitRepository {
	return &MockRateLimitRepository{
		emailFailures: make(map[string]int),
		ipFailures:    make(map[string]int),
	}
}

func (m *MockRateLimitRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	m.recorded = append(m.recorded, attempt)
	if !attempt.Success {
		m.emailFailures[attempt.Email]++
		m.ipFailures[attempt.IPAddress]++
		m.deviceFailures++
	}
	return nil
}

func (m *MockRateLimitRepository) GetFailedAttemptCount(ctx context.Context, email string, since time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.emailFailures[email], nil
}

func (m *MockRateLimitRepository) GetFailedAttemptCountByIP(ctx context.Context, ipAddress string, since time.Time) (int, error) {
	return m.ipFailures[ipAddress], nil
}

func (m *MockRateLimitRepository) GetFailedAttemptCountByDevice(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	return m.deviceFailures, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testRateLimitConfig() services.RateLimitConfig {
	return services.RateLimitConfig{
		MaxFailedAttemptsPerEmail:    5,
		EmailLockoutDuration:         15 * time.Minute,
		MaxAttemptsPerIP:             20,
		MaxAttemptsPerDevice:         10,
		LookbackWindow:               15 * time.Minute,
		ProgressiveLockoutMultiplier: 2,
		MaxLockoutDuration:           1 * time.Hour,
	}
}

func TestRateLimitServiceCheckRateLimit_AllowsInitialAttempt(t *testing.T) {
	service := services.NewRateLimitService(NewMockRateLimitRepository(), testRateLimitConfig(), testLogger())

	err := service.CheckRateLimit(context.Background(), "test@example.com", "192.168.1.1", "Mozilla/5.0")

	assert.NoError(t, err)
}

func TestRateLimitServiceCheckRateLimit_BlocksAfterMaxFailed(t *testing.T) {
	repo := NewMockRateLimitRepository()
	service := services.NewRateLimitService(repo, testRateLimitConfig(), testLogger())
	ctx := context.Background()
	reason := models.FailureReasonInvalidCredentials

	for i := 0; i < 5; i++ {
		require.NoError(t, service.RecordLoginAttempt(ctx, "test@example.com", "10.0.0.1", "ua", false, &reason))
	}

	err := service.CheckRateLimit(ctx, "test@example.com", "10.0.0.9", "other")

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
	var rl *services.RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "email", rl.Scope)
	assert.Equal(t, 15*time.Minute, rl.RetryAfter)
}

func TestRateLimitServiceCheckRateLimit_ProgressiveLockout(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"first block", 5, 15 * time.Minute},
		{"second block", 10, 30 * time.Minute},
		{"capped", 20, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockRateLimitRepository()
			repo.emailFailures["a@example.com"] = tt.failures
			service := services.NewRateLimitService(repo, testRateLimitConfig(), testLogger())

			err := service.CheckRateLimit(context.Background(), "a@example.com", "", "")

			var rl *services.RateLimitedError
			require.True(t, errors.As(err, &rl))
			assert.Equal(t, tt.want, rl.RetryAfter)
		})
	}
}

func TestRateLimitServiceCheckRateLimit_IPAndDevice(t *testing.T) {
	repo := NewMockRateLimitRepository()
	repo.ipFailures["10.0.0.1"] = 20
	service := services.NewRateLimitService(repo, testRateLimitConfig(), testLogger())

	err := service.CheckRateLimit(context.Background(), "b@example.com", "10.0.0.1", "ua")
	var rl *services.RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "ip", rl.Scope)

	repo.ipFailures["10.0.0.1"] = 0
	repo.deviceFailures = 10
	err = service.CheckRateLimit(context.Background(), "b@example.com", "10.0.0.1", "ua")
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "device", rl.Scope)
}

func TestRateLimitServiceCheckRateLimit_FailsOpen(t *testing.T) {
	repo := NewMockRateLimitRepository()
	repo.countErr = errors.New("connection refused")
	service := services.NewRateLimitService(repo, testRateLimitConfig(), testLogger())

	assert.NoError(t, service.CheckRateLimit(context.Background(), "c@example.com", "10.0.0.1", "ua"))
}

func TestRateLimitServiceRecordLoginAttempt(t *testing.T) {
	repo := NewMockRateLimitRepository()
	service := services.NewRateLimitService(repo, testRateLimitConfig(), testLogger())
	reason := models.FailureReasonUnknownEmail

	require.NoError(t, service.RecordLoginAttempt(context.Background(), "d@example.com", "10.0.0.1", "ua", false, &reason))
	require.NoError(t, service.RecordLoginAttempt(context.Background(), "d@example.com", "10.0.0.1", "ua", true, nil))

	require.Len(t, repo.recorded, 2)
	first := repo.recorded[0]
	assert.False(t, first.Success)
	assert.Equal(t, &reason, first.FailureReason)
	assert.Len(t, first.DeviceFingerprint, 64)
	assert.Equal(t, first.DeviceFingerprint, repo.recorded[1].DeviceFingerprint)
	assert.WithinDuration(t, first.AttemptTime.Add(30*time.Minute), first.ExpiresAt, time.Second)
	assert.Equal(t, 1, repo.emailFailures["d@example.com"])
}
