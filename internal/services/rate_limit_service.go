package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	pkglogger "github.com/OJT-CyberCrime/ciphers-sub000/pkg/logger"
)

// RateLimitRepository is the attempt log the limiter reads and appends to
type RateLimitRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	GetFailedAttemptCount(ctx context.Context, email string, since time.Time) (int, error)
	GetFailedAttemptCountByIP(ctx context.Context, ipAddress string, since time.Time) (int, error)
	GetFailedAttemptCountByDevice(ctx context.Context, fingerprint string, since time.Time) (int, error)
}

// RateLimitConfig holds configuration for rate limiting behavior
type RateLimitConfig struct {
	MaxFailedAttemptsPerEmail    int
	EmailLockoutDuration         time.Duration
	MaxAttemptsPerIP             int
	MaxAttemptsPerDevice         int
	LookbackWindow               time.Duration
	ProgressiveLockoutMultiplier float64       // applied once per extra block of MaxFailedAttemptsPerEmail
	MaxLockoutDuration           time.Duration // cap on lockout time
}

// RateLimitedError reports a server-side refusal. It unwraps to
// models.ErrRateLimitExceeded.
type RateLimitedError struct {
	Scope      string // "email", "ip" or "device"
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}

func (e *RateLimitedError) Unwrap() error {
	return models.ErrRateLimitExceeded
}

// RateLimitService is the credential verifier's own limiter over the
// login_attempts log. It sits behind the per-client counter and cannot be
// bypassed by clearing browser state.
type RateLimitService struct {
	repo   RateLimitRepository
	config RateLimitConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewRateLimitService(repo RateLimitRepository, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// CheckRateLimit returns a *RateLimitedError when the email, IP or device has
// too many recent failures. Repository errors fail open: availability of the
// login form matters more than this second line of defence.
func (s *RateLimitService) CheckRateLimit(ctx context.Context, email, ipAddress, userAgent string) error {
	lookbackTime := s.now().Add(-s.config.LookbackWindow)

	failedCount, err := s.repo.GetFailedAttemptCount(ctx, email, lookbackTime)
	if err != nil {
		s.logger.Error("failed to check email rate limit", slog.Any("error", err))
		return nil
	}
	if s.config.MaxFailedAttemptsPerEmail > 0 && failedCount >= s.config.MaxFailedAttemptsPerEmail {
		lockout := s.calculateLockoutDuration(failedCount)
		s.logger.Warn("account rate limited",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Int("failed_attempts", failedCount),
			slog.Duration("lockout_duration", lockout))
		return &RateLimitedError{Scope: "email", RetryAfter: lockout}
	}

	if ipAddress != "" && s.config.MaxAttemptsPerIP > 0 {
		ipAttempts, err := s.repo.GetFailedAttemptCountByIP(ctx, ipAddress, lookbackTime)
		if err != nil {
			s.logger.Error("failed to check IP rate limit", slog.Any("error", err))
			return nil
		}
		if ipAttempts >= s.config.MaxAttemptsPerIP {
			s.logger.Warn("IP rate limited",
				slog.String("ip_address", ipAddress),
				slog.Int("failed_attempts", ipAttempts))
			return &RateLimitedError{Scope: "ip", RetryAfter: s.config.LookbackWindow}
		}
	}

	if s.config.MaxAttemptsPerDevice > 0 {
		fingerprint := generateDeviceFingerprint(ipAddress, userAgent)
		deviceAttempts, err := s.repo.GetFailedAttemptCountByDevice(ctx, fingerprint, lookbackTime)
		if err != nil {
			s.logger.Error("failed to check device rate limit", slog.Any("error", err))
			return nil
		}
		if deviceAttempts >= s.config.MaxAttemptsPerDevice {
			s.logger.Warn("device rate limited",
				slog.String("device_fingerprint", fingerprint[:16]),
				slog.Int("failed_attempts", deviceAttempts))
			return &RateLimitedError{Scope: "device", RetryAfter: s.config.LookbackWindow}
		}
	}

	return nil
}

// RecordLoginAttempt appends the outcome of a credential check to the log
func (s *RateLimitService) RecordLoginAttempt(ctx context.Context, email, ipAddress, userAgent string, success bool, failureReason *string) error {
	now := s.now()
	attempt := &models.LoginAttempt{
		Email:             email,
		IPAddress:         ipAddress,
		UserAgent:         userAgent,
		AttemptTime:       now,
		Success:           success,
		FailureReason:     failureReason,
		DeviceFingerprint: generateDeviceFingerprint(ipAddress, userAgent),
		ExpiresAt:         now.Add(s.config.LookbackWindow * 2),
	}

	return s.repo.RecordAttempt(ctx, attempt)
}

// calculateLockoutDuration grows the base lockout by the multiplier for each
// further block of failures past the first, capped at MaxLockoutDuration
func (s *RateLimitService) calculateLockoutDuration(failedCount int) time.Duration {
	lockout := s.config.EmailLockoutDuration

	blocks := failedCount/s.config.MaxFailedAttemptsPerEmail - 1
	if blocks > 0 && s.config.ProgressiveLockoutMultiplier > 1 {
		lockout = time.Duration(float64(lockout) * math.Pow(s.config.ProgressiveLockoutMultiplier, float64(blocks)))
	}

	if s.config.MaxLockoutDuration > 0 && lockout > s.config.MaxLockoutDuration {
		lockout = s.config.MaxLockoutDuration
	}
	return lockout
}

// generateDeviceFingerprint hashes IP + User-Agent into a hex device id
func generateDeviceFingerprint(ipAddress, userAgent string) string {
	hash := sha256.Sum256([]byte(ipAddress + ":" + userAgent))
	return hex.EncodeToString(hash[:])
}
