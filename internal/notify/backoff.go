package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// runForever calls listen until ctx is done, backing off between failures.
func runForever(ctx context.Context, log *zap.Logger, backend string, listen func(context.Context) error) error {
	backoff := minBackoff
	for {
		started := time.Now()
		err := listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) > maxBackoff {
			backoff = minBackoff
		}
		log.Warn("change listener stopped, reconnecting",
			zap.String("backend", backend),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
