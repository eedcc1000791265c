package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"asset-tracker/internal/logger"
)

// RetentionStore removes telemetry rows whose expiry has passed.
type RetentionStore interface {
	DeleteExpiredTelemetry(ctx context.Context, now time.Time) (int64, error)
}

// StartRetentionJob periodically purges expired telemetry. The storage
// layer stamps every row with an expires_at; this sweeper is the explicit
// replacement for a store-native TTL.
func StartRetentionJob(ctx context.Context, store RetentionStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("telemetry retention job started",
		zap.Duration("interval", interval),
	)

	purgeExpired(ctx, store)

	for {
		select {
		case <-ctx.Done():
			logger.Info("telemetry retention job stopped")
			return
		case <-ticker.C:
			purgeExpired(ctx, store)
		}
	}
}

func purgeExpired(ctx context.Context, store RetentionStore) {
	deleted, err := store.DeleteExpiredTelemetry(ctx, time.Now())
	if err != nil {
		logger.Error("failed to purge expired telemetry", zap.Error(err))
		return
	}

	if deleted > 0 {
		logger.Info("expired telemetry purged",
			zap.Int64("rows", deleted),
		)
	}
}
