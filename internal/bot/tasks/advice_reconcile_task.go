package tasks

import (
	"context"
	"fmt"
	"time"
)

// newAdviceReconcileTask subscribes persisted profiles whose advice job is
// missing, e.g. after a failed restore at startup.
func newAdviceReconcileTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "advice_reconcile")

	return func(ctx context.Context) error {
		startTime := time.Now()

		n, err := deps.Advice.Restore(ctx)
		if err != nil {
			return fmt.Errorf("advice reconcile failed: %w", err)
		}

		log.InfoContext(ctx, "Advice jobs reconciled", "profiles", n, "duration", time.Since(startTime))
		return nil
	}
}
