package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/database"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository is the portal's user directory on PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

const userColumns = `id, email, password_hash, name, role, status,
	two_factor_secret, two_factor_enabled, reset_token, reset_expires,
	created_at, updated_at`

// rowScanner interface for scanning user rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role, &user.Status,
		&user.TwoFactorSecret, &user.TwoFactorEnabled, &user.ResetToken, &user.ResetExpires,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// FindByEmail matches case-insensitively; addresses are stored lower-cased
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, normalizeEmail(email)))
}

// FindByResetToken looks a user up by the SHA-256 hash of a reset token.
// Expiry is not checked here.
func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, tokenHash))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	user.Email = normalizeEmail(user.Email)

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = "officer"
	}
	if user.Status == "" {
		user.Status = "active"
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, role, status, two_factor_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.Status,
		user.TwoFactorEnabled, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return user, nil
}

// UpdateTwoFactorFields writes every field named by update in one UPDATE
// statement, so a disable clears enrollment and the reset pair together.
func (r *UserRepository) UpdateTwoFactorFields(ctx context.Context, id string, update models.TwoFactorUpdate) error {
	if err := update.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Enabled != nil {
		add("two_factor_enabled", *update.Enabled)
	}
	if update.SetSecret {
		add("two_factor_secret", update.Secret)
	}
	if update.SetReset {
		add("reset_token", update.ResetToken)
		add("reset_expires", update.ResetExpires)
	}
	add("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearExpiredResets drops reset pairs whose expiry has passed
func (r *UserRepository) ClearExpiredResets(ctx context.Context) (int64, error) {
	query := `
		UPDATE users SET reset_token = NULL, reset_expires = NULL, updated_at = NOW()
		WHERE reset_expires IS NOT NULL AND reset_expires <= NOW()
	`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
