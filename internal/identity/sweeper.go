package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/taskflow/internal/shared"
	"github.com/ashureev/taskflow/internal/store"
)

// deleteExpiredWithRetry deletes expired sessions, riding out SQLITE_BUSY
// while request handlers hold the write lock.
func deleteExpiredWithRetry(ctx context.Context, repo store.Repository, now time.Time) (int64, error) {
	var deleted int64
	err := shared.RetryOnConflict(ctx, "delete expired sessions", shared.DefaultRetryPolicy, func() error {
		var err error
		deleted, err = repo.DeleteExpiredSessions(ctx, now)
		return err
	})
	return deleted, err
}

// StartSessionSweeper runs a background goroutine that periodically removes
// expired sign-in sessions until ctx is cancelled.
func StartSessionSweeper(ctx context.Context, repo store.Repository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sweepExpiredSessions(ctx, repo, time.Now())
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepExpiredSessions(ctx context.Context, repo store.Repository, now time.Time) int64 {
	deleted, err := deleteExpiredWithRetry(ctx, repo, now)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Session sweeper: context canceled during sweep", "error", err)
			return 0
		}
		slog.Error("Session sweeper failed", "error", err)
		return 0
	}
	if deleted > 0 {
		slog.Info("Session sweeper removed expired sessions", "count", deleted)
	}
	return deleted
}
