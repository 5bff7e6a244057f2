package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/edgard/adviserbot/internal/errors"
	"github.com/edgard/adviserbot/internal/profile"
)

// Store is the profile store plus the housekeeping the bot needs.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	profile.Store

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

const defaultOperationTimeout = 15 * time.Second

// sqlxStore implements Store on SQLite through sqlx.
type sqlxStore struct {
	db      *sqlx.DB
	logger  *slog.Logger
	timeout time.Duration
}

// NewStore creates a new Store backed by sqlx. A zero timeout falls back to 15s.
func NewStore(db *sqlx.DB, timeout time.Duration, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	return &sqlxStore{
		db:      db,
		logger:  logger.With("component", "store"),
		timeout: timeout,
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.NewStoreUnavailable("database ping failed", err)
	}
	return nil
}

func (s *sqlxStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
		return err
	}
	s.logger.Info("Database connection closed successfully.")
	return nil
}

// GetProfile retrieves a profile by user ID. Returns nil, nil if not found.
func (s *sqlxStore) GetProfile(ctx context.Context, userID int64) (*profile.Profile, error) {
	if userID == 0 {
		return nil, apperrors.NewValidationError("user_id cannot be zero", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row profileRow
	query := `SELECT user_id, name, topic, description, frequency, persona, level, created_at, updated_at
	          FROM user_profiles WHERE user_id = ?`

	err := s.db.GetContext(ctx, &row, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user profile found", "user_id", userID)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user profile", "user_id", userID, "error", err)
		return nil, apperrors.NewStoreUnavailable(fmt.Sprintf("failed to get profile for user %d", userID), err)
	}

	return row.toProfile(), nil
}

// UpsertProfile writes the whole record in one statement so readers never
// observe a partially written profile.
func (s *sqlxStore) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := rowFromProfile(p, time.Now().UTC())
	query := `
		INSERT INTO user_profiles (
			user_id, name, topic, description, frequency, persona, level, created_at, updated_at
		) VALUES (
			:user_id, :name, :topic, :description, :frequency, :persona, :level, :created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			name = excluded.name,
			topic = excluded.topic,
			description = excluded.description,
			frequency = excluded.frequency,
			persona = excluded.persona,
			level = excluded.level,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving user profile", "user_id", p.UserID, "error", err)
		return apperrors.NewStoreUnavailable(fmt.Sprintf("failed to save profile for user %d", p.UserID), err)
	}

	s.logger.DebugContext(ctx, "User profile saved", "user_id", p.UserID)
	return nil
}

// ListProfiles returns all profiles ordered by user ID.
func (s *sqlxStore) ListProfiles(ctx context.Context) ([]*profile.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []profileRow
	query := `SELECT user_id, name, topic, description, frequency, persona, level, created_at, updated_at
	          FROM user_profiles ORDER BY user_id`

	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing user profiles", "error", err)
		return nil, apperrors.NewStoreUnavailable("failed to list profiles", err)
	}

	profiles := make([]*profile.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.toProfile())
	}
	return profiles, nil
}

// RunSQLMaintenance executes VACUUM. It must run outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return apperrors.NewStoreUnavailable("failed to execute VACUUM", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
