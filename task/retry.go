package task

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jobrake/jobrake/errors"
)

// MaxRetries is the default maximum number of retry attempts for failed tasks
const MaxRetries = 3

// ErrRetryScheduled marks a handler error whose task was already re-queued
// for another attempt. The worker pool leaves such tasks alone instead of
// marking them failed.
var ErrRetryScheduled = errors.New("retry scheduled")

// BackoffPolicy controls exponential backoff: delay = Base * 2^attempt,
// capped at Max.
type BackoffPolicy struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// DefaultBackoff returns the standard pipeline backoff policy.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Base:        500 * time.Millisecond,
		Max:         30 * time.Second,
		MaxAttempts: MaxRetries,
	}
}

// Delay returns the backoff delay for the given zero-based attempt.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	d := p.Base << attempt
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// WithBackoff runs fn up to MaxAttempts+1 times, sleeping Base*2^attempt
// between attempts. The last error is returned when all attempts fail.
// retryable filters which errors are worth retrying; a nil filter retries
// everything. Context cancellation aborts the wait immediately.
func WithBackoff(ctx context.Context, policy BackoffPolicy, retryable func(error) bool, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(policy.Delay(attempt - 1)):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", policy.MaxAttempts+1, lastErr)
}

// Retryable re-queues a task for another attempt, or returns a final error
// once max retries are exhausted. The re-queued task carries a not-before
// timestamp following the backoff schedule, so redelivery waits out the
// delay instead of happening at the next poll tick. The caller's handler
// should return the wrapped error either way; the worker pool treats a
// re-queued task as pending work, not a failure.
func Retryable(queue *Queue, t *Task, operation string, err error, log *zap.SugaredLogger) error {
	if t.RetryCount < MaxRetries {
		t.RetryCount++
		delay := DefaultBackoff().Delay(t.RetryCount - 1)
		notBefore := time.Now().Add(delay)
		t.NotBefore = &notBefore
		t.Error = fmt.Sprintf("%s (retry %d/%d): %v", operation, t.RetryCount, MaxRetries, err)
		t.Status = StatusQueued
		if updateErr := queue.UpdateTask(t); updateErr != nil {
			log.Warnw("Failed to update task for retry",
				"error", updateErr,
			)
		} else {
			log.Infow("Retry scheduled",
				"retry_count", t.RetryCount,
				"max_retries", MaxRetries,
				"delay", delay,
				"operation", operation,
			)
		}
		return fmt.Errorf("%w: %v", ErrRetryScheduled, err)
	}
	log.Warnw("Max retries exceeded",
		"max_retries", MaxRetries,
		"operation", operation,
	)
	return fmt.Errorf("%s after %d retries: %w", operation, MaxRetries, err)
}
