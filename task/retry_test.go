package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobrake/jobrake/errors"
	jobraketest "github.com/jobrake/jobrake/internal/testing"
)

func TestBackoffDelayDoubles(t *testing.T) {
	p := BackoffPolicy{Base: 500 * time.Millisecond, Max: 30 * time.Second, MaxAttempts: 3}

	assert.Equal(t, 500*time.Millisecond, p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
}

func TestBackoffDelayCapped(t *testing.T) {
	p := BackoffPolicy{Base: time.Second, Max: 3 * time.Second, MaxAttempts: 5}

	assert.Equal(t, 3*time.Second, p.Delay(4))
}

func TestWithBackoffSucceedsAfterFailures(t *testing.T) {
	p := BackoffPolicy{Base: time.Millisecond, Max: 10 * time.Millisecond, MaxAttempts: 3}

	calls := 0
	err := WithBackoff(context.Background(), p, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoffExhaustsAttempts(t *testing.T) {
	p := BackoffPolicy{Base: time.Millisecond, Max: 10 * time.Millisecond, MaxAttempts: 2}

	calls := 0
	err := WithBackoff(context.Background(), p, nil, func() error {
		calls++
		return errors.New("still broken")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "MaxAttempts=2 means 1 initial try plus 2 retries")
}

func TestWithBackoffStopsOnNonRetryable(t *testing.T) {
	p := BackoffPolicy{Base: time.Millisecond, MaxAttempts: 3}
	permanent := errors.New("404 not found")

	calls := 0
	err := WithBackoff(context.Background(), p, func(err error) bool {
		return !errors.Is(err, permanent)
	}, func() error {
		calls++
		return permanent
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")
}

func TestWithBackoffHonorsContextCancel(t *testing.T) {
	p := BackoffPolicy{Base: 10 * time.Second, MaxAttempts: 3}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := WithBackoff(ctx, p, nil, func() error {
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), time.Second, "cancel should abort the backoff sleep")
}

func TestRetryableRequeuesTask(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	q := NewQueue(db)
	log := zap.NewNop().Sugar()

	tk := mustNewTask(t, "scrape.board", "SJ_1")
	require.NoError(t, q.Enqueue(tk))

	dequeued, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, dequeued)

	before := time.Now()
	err = Retryable(q, dequeued, "fetch board", errors.New("http 503"), log)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetryScheduled), "requeued task returns the retry sentinel")

	got, err := q.GetTask(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Contains(t, got.Error, "retry 1/3")
	require.NotNil(t, got.NotBefore, "requeued task carries a redelivery delay")
	assert.True(t, got.NotBefore.After(before), "first retry waits out the base backoff delay")
}

func TestRetryableDelayFollowsBackoffSchedule(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	q := NewQueue(db)
	log := zap.NewNop().Sugar()

	tk := mustNewTask(t, "scrape.board", "SJ_1")
	tk.RetryCount = 2
	require.NoError(t, q.Enqueue(tk))
	tk.Start()
	require.NoError(t, q.UpdateTask(tk))

	before := time.Now()
	err := Retryable(q, tk, "fetch board", errors.New("http 503"), log)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRetryScheduled))

	got, err := q.GetTask(tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NotBefore)
	want := DefaultBackoff().Delay(2)
	assert.GreaterOrEqual(t, got.NotBefore.Sub(before), want, "third retry doubles twice from the base delay")
}

func TestRetryableExhaustsRetries(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	q := NewQueue(db)
	log := zap.NewNop().Sugar()

	tk := mustNewTask(t, "scrape.board", "SJ_1")
	tk.RetryCount = MaxRetries
	require.NoError(t, q.Enqueue(tk))

	dequeued, err := q.Dequeue()
	require.NoError(t, err)

	err = Retryable(q, dequeued, "fetch board", errors.New("http 503"), log)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRetryScheduled), "final failure must not look like a scheduled retry")

	// Task is left running; the worker pool marks it failed from the returned error
	got, err := q.GetTask(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
}
