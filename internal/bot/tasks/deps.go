// Package tasks implements the cron maintenance tasks of the adviser bot.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/adviserbot/internal/database"
)

// AdviceRestorer re-creates advice jobs for persisted profiles. Profiles that
// already have a job are left untouched.
type AdviceRestorer interface {
	Restore(ctx context.Context) (int, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Advice AdviceRestorer
}
