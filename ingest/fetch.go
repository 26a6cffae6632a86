package ingest

import (
	"context"
	"time"

	"github.com/jobrake/jobrake/errors"
	"github.com/jobrake/jobrake/internal/httpclient"
	"github.com/jobrake/jobrake/task"
)

// fetchRetryBase is the first retry delay for transient fetch failures.
// Subsequent delays double per attempt.
const fetchRetryBase = 500 * time.Millisecond

// fetchWithRetry performs a GET with in-process exponential backoff.
// Transport errors and retryable HTTP statuses (5xx, 429) are retried up to
// the board's configured attempt count; other 4xx fail immediately.
func fetchWithRetry(ctx context.Context, client *httpclient.Client, rawURL string, headers map[string]string, attempts int) (body []byte, status int, err error) {
	if attempts < 0 {
		attempts = 0
	}

	policy := task.BackoffPolicy{
		Base:        fetchRetryBase,
		Max:         30 * time.Second,
		MaxAttempts: attempts,
	}

	retryErr := task.WithBackoff(ctx, policy, func(err error) bool {
		var fe *fetchError
		if errors.As(err, &fe) {
			// Transport errors carry status 0 and are always retryable
			return fe.status == 0 || httpclient.IsRetryableStatus(fe.status)
		}
		return false
	}, func() error {
		b, s, ferr := client.Fetch(ctx, rawURL, headers)
		body, status = b, s
		if ferr != nil {
			return &fetchError{status: s, err: ferr}
		}
		return nil
	})

	if retryErr != nil {
		return body, status, errors.Wrapf(retryErr, "fetch %s", rawURL)
	}
	return body, status, nil
}

// fetchError pairs a fetch failure with its HTTP status for retry
// classification.
type fetchError struct {
	status int
	err    error
}

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }
