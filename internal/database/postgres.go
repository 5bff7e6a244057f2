package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/edgard/adviserbot/internal/errors"
	"github.com/edgard/adviserbot/internal/profile"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS user_profiles (
    user_id     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    topic       TEXT NOT NULL,
    description TEXT NOT NULL,
    frequency   INTEGER NOT NULL CHECK (frequency >= 1),
    persona     TEXT NOT NULL,
    level       TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// postgresStore implements Store on a pgx connection pool.
type postgresStore struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	timeout time.Duration
}

// NewPostgresStore connects to dsn, verifies the connection and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string, timeout time.Duration, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("failed to connect to database", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, apperrors.NewStoreUnavailable("failed to ping database", err)
	}

	if _, err := pool.Exec(connectCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	logger.Info("Postgres connected and schema ensured")
	return &postgresStore{
		pool:    pool,
		logger:  logger.With("component", "store", "driver", "postgres"),
		timeout: timeout,
	}, nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return apperrors.NewStoreUnavailable("database ping failed", err)
	}
	return nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *postgresStore) GetProfile(ctx context.Context, userID int64) (*profile.Profile, error) {
	if userID == 0 {
		return nil, apperrors.NewValidationError("user_id cannot be zero", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var r profileRow
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, name, topic, description, frequency, persona, level, created_at, updated_at
		FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&r.UserID, &r.Name, &r.Topic, &r.Description, &r.Frequency, &r.Persona, &r.Level, &r.CreatedAt, &r.UpdatedAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user profile", "user_id", userID, "error", err)
		return nil, apperrors.NewStoreUnavailable(fmt.Sprintf("failed to get profile for user %d", userID), err)
	}
	return r.toProfile(), nil
}

func (s *postgresStore) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, name, topic, description, frequency, persona, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET name = $2, topic = $3, description = $4, frequency = $5, persona = $6, level = $7, updated_at = NOW()`,
		p.UserID, p.Name, p.Topic, p.Description, p.Frequency, string(p.Persona), string(p.Level),
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving user profile", "user_id", p.UserID, "error", err)
		return apperrors.NewStoreUnavailable(fmt.Sprintf("failed to save profile for user %d", p.UserID), err)
	}
	return nil
}

func (s *postgresStore) ListProfiles(ctx context.Context) ([]*profile.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT user_id, name, topic, description, frequency, persona, level, created_at, updated_at
		FROM user_profiles ORDER BY user_id`)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("failed to list profiles", err)
	}
	defer rows.Close()

	var profiles []*profile.Profile
	for rows.Next() {
		var r profileRow
		if err := rows.Scan(&r.UserID, &r.Name, &r.Topic, &r.Description, &r.Frequency, &r.Persona, &r.Level, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, apperrors.NewStoreUnavailable("failed to scan profile", err)
		}
		profiles = append(profiles, r.toProfile())
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailable("failed to list profiles", err)
	}
	return profiles, nil
}

func (s *postgresStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM ANALYZE)...")
	if _, err := s.pool.Exec(ctx, "VACUUM ANALYZE user_profiles"); err != nil {
		return apperrors.NewStoreUnavailable("failed to execute VACUUM", err)
	}
	s.logger.InfoContext(ctx, "Database maintenance completed successfully")
	return nil
}
