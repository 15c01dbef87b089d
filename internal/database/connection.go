package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the pgx pool shared by the user directory and the login attempt log
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

const (
	connectTimeout = 10 * time.Second
	retryBackoff   = 2 * time.Second
)

// NewConnection opens the pool and waits for Postgres to answer a ping.
// Start-up races with the database container are retried
// cfg.ConnectAttempts times with a linear backoff.
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.HealthCheckPeriod = cfg.HealthCheckPeriod

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err := dial(ctx, pc)
		if err == nil {
			logger.Info("database connection established",
				slog.String("host", cfg.Host),
				slog.String("database", cfg.Name),
				slog.Int("max_conns", int(cfg.MaxConns)),
				slog.Int("attempt", attempt),
			)
			return &DB{Pool: pool, logger: logger}, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		logger.Warn("database not ready, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return nil, lastErr
}

func dial(ctx context.Context, pc *pgxpool.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// FromPool wraps an already connected pool
func FromPool(pool *pgxpool.Pool, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{Pool: pool, logger: logger}
}

func (db *DB) Close() {
	db.logger.Info("closing database connection pool")
	db.Pool.Close()
}

// HealthCheck is what /health reports
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
