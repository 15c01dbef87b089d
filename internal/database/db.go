package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapPostgresError translates driver errors into the models sentinels
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrConflict
		case "23502", "23503", "23514": // not_null, foreign_key, check (reset_pair)
			return models.ErrBadRequest
		case "57014", "08006": // query_canceled, connection_failure
			return fmt.Errorf("%w: %s", models.ErrServiceUnavailable, pgErr.Message)
		}
	}

	return err
}
