package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tonimelisma/iptv-sync/internal/xtream"
)

// DefaultRetryAttempts is how many times the catalog fetch is tried.
const DefaultRetryAttempts = 3

// fetchBackoff holds the delay after each failed attempt. Attempts beyond
// the table reuse the last entry.
var fetchBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
}

func fetchDelay(attempt int) time.Duration {
	return fetchBackoff[min(attempt, len(fetchBackoff)-1)]
}

// retryFetch opens the catalog stream, retrying retryable failures. Only
// the fetch is retried; categories and writes are never re-run.
func (o *Orchestrator) retryFetch(
	ctx context.Context, logger *slog.Logger, fetch func(context.Context) (io.ReadCloser, error),
) (io.ReadCloser, error) {
	var lastErr error

	for attempt := range o.cfg.RetryAttempts {
		body, err := fetch(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("catalog fetch succeeded after retry", slog.Int("attempt", attempt+1))
			}

			return body, nil
		}

		lastErr = err

		if !xtream.IsRetryable(err) || attempt == o.cfg.RetryAttempts-1 {
			break
		}

		delay := fetchDelay(attempt)

		logger.Warn("catalog fetch failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)

		if err := o.sleepFunc(ctx, delay); err != nil {
			return nil, fmt.Errorf("sync: waiting to retry fetch: %w", err)
		}
	}

	return nil, lastErr
}

// timeSleep waits for d or until ctx is done. Default sleepFunc.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
