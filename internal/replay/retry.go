package replay

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retryFailure is called after each failed attempt that will be retried.
type retryFailure func(attempt int, wait time.Duration, err error)

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, onFailure retryFailure, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > maxRetries || ctx.Err() != nil {
			return err
		}
		if onFailure != nil {
			onFailure(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// retry runs fn under the configured retry policy and logs every failed attempt under op.
func (r *Runner) retry(ctx context.Context, op string, fields []zap.Field, fn func(context.Context) error) error {
	return withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(attempt int, wait time.Duration, err error) {
		r.logger.Warn(op+" failed, retrying", append(fields,
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)...)
	}, fn)
}
