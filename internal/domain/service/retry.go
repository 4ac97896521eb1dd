package service

import (
	"context"
	"errors"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/logger"
)

// withRetry runs fn until it succeeds, fails with a non-retryable error, or
// attempts are exhausted. The wait doubles after every version conflict.
func withRetry(ctx context.Context, op string, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	wait := backoff
	for i := 0; i < attempts; i++ {
		err = fn()
		var stale staleInput
		if errors.As(err, &stale) {
			return stale.err
		}
		if err == nil || !models.IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		logger.VersionConflictRetryTotal.WithLabelValues(op).Inc()
		logger.Log.Debugw("Retrying after version conflict", "operation", op, "attempt", i+1, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
	return err
}
