package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/audience-chat/internal/store"
)

// StartRetentionWorker runs a background goroutine that periodically
// deletes saved selections older than retention.
func StartRetentionWorker(ctx context.Context, repo store.Repository, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", interval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				sweepSelections(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepSelections(ctx context.Context, repo store.Repository, retention time.Duration) int64 {
	deleted, err := repo.CleanupExpiredSelections(ctx, retention)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("Retention worker failed to cleanup selections", "error", err)
		}
		return 0
	}
	if deleted > 0 {
		slog.Info("Retention worker removed expired selections", "count", deleted)
	}
	return deleted
}
