package collect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/source"
)

// RetryPolicy controls retries of transient fetch failures.
// MaxAttempts counts the first try. Delays grow as BaseDelay·2^attempt and
// are capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is three attempts starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 300 * time.Second}
}

// backoffDuration returns the wait before retry number attempt (0-based).
func (p RetryPolicy) backoffDuration(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	ceiling := p.MaxDelay
	if ceiling <= 0 {
		ceiling = 300 * time.Second
	}
	if attempt > 30 {
		return ceiling
	}
	d := base << attempt
	if d <= 0 || d > ceiling {
		d = ceiling
	}
	return d
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fetchWithRetry retries only errors wrapping internalerr.ErrTransientFetch.
func (c *Collector) fetchWithRetry(ctx context.Context, req source.PageRequest) (source.Page, error) {
	attempts := c.opts.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		page, err := c.src.FetchPage(ctx, req)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return source.Page{}, ctx.Err()
		}
		if !errors.Is(err, internalerr.ErrTransientFetch) {
			return source.Page{}, err
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}
		wait := c.opts.Retry.backoffDuration(attempt)
		c.logger.Warn("transient fetch failure, retrying",
			"app_id", req.AppID, "attempt", attempt+1, "wait", wait, "err", err)
		if err := c.opts.Sleep(ctx, wait); err != nil {
			return source.Page{}, err
		}
	}
	return source.Page{}, fmt.Errorf("fetch gave up after %d attempts: %w", attempts, lastErr)
}
