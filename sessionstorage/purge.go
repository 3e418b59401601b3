package sessionstorage

import (
	"context"
	"time"

	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
)

// Purge removes mirror entries not written for maxAge, every interval, until ctx is done.
func Purge(ctx context.Context, m Mirror, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := m.PurgeBefore(ctx, time.Now().Add(-maxAge))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.FromCtx(ctx).Error(errors.Wrap(err, "Mirror.PurgeBefore()"))

			continue
		}
		if n > 0 {
			logger.FromCtx(ctx).Infof("purged %d idle sessions", n)
		}
	}
}
