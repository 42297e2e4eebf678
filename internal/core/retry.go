package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hedgemm/hmm/internal/domain"
	"github.com/hedgemm/hmm/internal/transfer"

	"github.com/cenkalti/backoff/v3"
)

// DefaultRetryBackOff returns the back-off used between whole download
// attempts. maxAttempts counts the first try.
func DefaultRetryBackOff(maxAttempts int) backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return backoff.WithMaxRetries(b, uint64(maxAttempts-1))
}

// IsRetryable reports whether a download error may go away on a fresh attempt.
// Only failures that happened before any body byte was written qualify.
func IsRetryable(err error) bool {
	var reqErr *domain.RequestFailedError
	if errors.As(err, &reqErr) {
		return reqErr.Temporary()
	}
	return false
}

// DownloadWithRetry repeats the whole download while it fails with a
// retryable error. Mid-transfer I/O failures and cancellation end it at once.
// onRetry, if set, is told about every failed attempt that will be retried.
func DownloadWithRetry(ctx context.Context, d *Downloader, url, destPath string, progressFn ProgressFunc, b backoff.BackOff, onRetry func(error, time.Duration)) (*DownloadResult, error) {
	if b == nil {
		b = DefaultRetryBackOff(3)
	}

	var result *DownloadResult
	operation := func() error {
		r, err := d.Download(ctx, url, destPath, progressFn)
		if err != nil {
			if IsRetryable(err) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), onRetry); err != nil {
		// a cancel during the wait between attempts surfaces as a bare ctx.Err()
		if ctx.Err() != nil && !errors.Is(err, transfer.ErrCancelled) {
			return nil, fmt.Errorf("%w: %w", transfer.ErrCancelled, context.Cause(ctx))
		}
		return nil, err
	}
	return result, nil
}
