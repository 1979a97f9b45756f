// Package jobs holds the scheduled maintenance jobs besides the report:
// inactive-customer cleanup, heartbeat, low-stock restock, and order
// reminders. Each job runs to completion, logs its outcome, and leaves
// retry policy to the scheduler.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crm/internal/joblog"
	"crm/internal/storage"
)

const timestampFormat = "2006-01-02 15:04:05"

// appendOrLog writes job-log lines and surfaces a failed append on the
// process log, so a broken log file never masks the job's own outcome.
func appendOrLog(logger *slog.Logger, log *joblog.Writer, lines ...string) {
	if err := log.Append(lines...); err != nil {
		logger.Error("job log append failed", "err", err)
	}
}

// Cleanup deletes customers with no order inside the trailing window.
// The deletion is immediate; there is no soft delete.
type Cleanup struct {
	store        storage.Store
	log          *joblog.Writer
	logger       *slog.Logger
	inactiveDays int
	now          func() time.Time
}

func NewCleanup(store storage.Store, log *joblog.Writer, logger *slog.Logger, inactiveDays int) *Cleanup {
	return &Cleanup{store: store, log: log, logger: logger, inactiveDays: inactiveDays, now: time.Now}
}

func (c *Cleanup) Run(ctx context.Context) (int64, error) {
	ts := c.now().Format(timestampFormat)
	cutoff := c.now().UTC().AddDate(0, 0, -c.inactiveDays)

	deleted, err := c.store.DeleteInactiveCustomers(ctx, cutoff)
	if err != nil {
		appendOrLog(c.logger, c.log, fmt.Sprintf("[%s] Customer cleanup failed: %v", ts, err))
		return 0, fmt.Errorf("cleanup: %w", err)
	}

	line := fmt.Sprintf("[%s] Deleted %d inactive customers", ts, deleted)
	if err := c.log.Append(line); err != nil {
		return deleted, fmt.Errorf("cleanup log: %w", err)
	}
	return deleted, nil
}
