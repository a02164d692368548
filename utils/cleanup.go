package utils

import (
	"context"
	"time"
)

// Sweeper is implemented by the session engine's expiry sweep.
type Sweeper interface {
	ExpireSweep(ctx context.Context) (int, error)
}

// RetentionSweeper is implemented by the storage retention sweep.
type RetentionSweeper interface {
	RetentionSweep(maxAgeDays int) (int, error)
}

// StartCleanupWorker launches a background goroutine that periodically
// destroys expired upload sessions and deletes committed files past the
// retention window. Both sweeps are single-shot idempotent operations, so a
// missed or doubled tick is harmless. Best-effort; failures are logged.
func StartCleanupWorker(interval time.Duration, sessions Sweeper, storage RetentionSweeper, retentionDays int) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)

			ctx, cancel := context.WithTimeout(context.Background(), interval)
			expired, err := sessions.ExpireSweep(ctx)
			cancel()
			if err != nil {
				Sugar.Warnw("expiry sweep failed", "error", err)
			}

			removed, err := storage.RetentionSweep(retentionDays)
			if err != nil {
				Sugar.Warnw("retention sweep failed", "error", err)
			}

			if expired > 0 || removed > 0 {
				Sugar.Infow("cleanup pass completed", "expired_sessions", expired, "old_files", removed)
			}
		}
	}()
}
