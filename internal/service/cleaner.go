package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartSessionCleaner deletes expired sessions with interval until ctx is done.
// A non-positive interval disables it.
func StartSessionCleaner(
	ctx context.Context,
	sessions SessionStore,
	interval time.Duration,
	now func() time.Time,
	log *zap.Logger,
) {
	if interval <= 0 {
		log.Warn("session cleaner disabled", zap.Duration("interval", interval))
		return
	}
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := sessions.DeleteExpired(ctx, now())
				if err != nil {
					log.Error("failed to clean expired sessions", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("cleaned expired sessions", zap.Int("removed", removed))
				}
			}
		}
	}()
}
