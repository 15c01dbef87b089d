package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/database"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/google/uuid"
)

// LoginAttemptRepository is the server-side log of credential checks
type LoginAttemptRepository struct {
	db *database.DB
}

func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.AttemptTime.IsZero() {
		attempt.AttemptTime = time.Now()
	}

	query := `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, attempt_time, success, failure_reason, device_fingerprint, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID,
		normalizeEmail(attempt.Email),
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.AttemptTime,
		attempt.Success,
		attempt.FailureReason,
		attempt.DeviceFingerprint,
		attempt.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// countFailures returns failed attempts since the given time, keyed by one of
// the indexed columns
func (r *LoginAttemptRepository) countFailures(ctx context.Context, column, value string, since time.Time) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM login_attempts
		WHERE %s = $1 AND success = false AND attempt_time >= $2
	`, column)

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, value, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count login failures by %s: %w", column, err)
	}
	return count, nil
}

func (r *LoginAttemptRepository) GetFailedAttemptCount(ctx context.Context, email string, since time.Time) (int, error) {
	return r.countFailures(ctx, "email", normalizeEmail(email), since)
}

func (r *LoginAttemptRepository) GetFailedAttemptCountByIP(ctx context.Context, ipAddress string, since time.Time) (int, error) {
	return r.countFailures(ctx, "ip_address", ipAddress, since)
}

func (r *LoginAttemptRepository) GetFailedAttemptCountByDevice(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	return r.countFailures(ctx, "device_fingerprint", fingerprint, since)
}

// DeleteExpiredAttempts removes login attempts past their retention time
func (r *LoginAttemptRepository) DeleteExpiredAttempts(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM login_attempts WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired login attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
