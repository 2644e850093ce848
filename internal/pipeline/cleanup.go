package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/shahar-caura/scout/internal/session"
)

// SweepInterval is how often RunJanitor removes expired sessions.
const SweepInterval = time.Hour

// CleanupSessions deletes sessions not updated within retention and returns
// how many were removed. A zero retention keeps everything.
func CleanupSessions(ctx context.Context, st session.Store, retention time.Duration, logger *slog.Logger) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	n, err := st.Cleanup(ctx, retention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("removed expired sessions", "count", n, "retention", retention)
	}
	return n, nil
}

// RunJanitor calls CleanupSessions once immediately and then every interval
// until ctx is cancelled.
func RunJanitor(ctx context.Context, st session.Store, retention, interval time.Duration, logger *slog.Logger) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := CleanupSessions(ctx, st, retention, logger); err != nil && ctx.Err() == nil {
			logger.Warn("session cleanup failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
