package task

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jobrake/jobrake/errors"
)

// SubscriberChannelBufferSize is the buffer size for subscriber channels
const SubscriberChannelBufferSize = 100

// Queue is the durable task queue. All state lives in the tasks table; the
// mutex serializes the dequeue check-and-claim within this process.
type Queue struct {
	store       *Store
	mu          sync.RWMutex
	subscribers []chan *Task
}

// NewQueue creates a new task queue over the given database
func NewQueue(db *sql.DB) *Queue {
	return &Queue{
		store:       NewStore(db),
		subscribers: make([]chan *Task, 0),
	}
}

// Store returns the underlying task store.
func (q *Queue) Store() *Store {
	return q.store
}

// Enqueue adds a new task to the queue
func (q *Queue) Enqueue(t *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.CreateTask(t); err != nil {
		err = errors.Wrap(err, "failed to enqueue task")
		err = errors.WithDetail(err, fmt.Sprintf("Task ID: %s", t.ID))
		err = errors.WithDetail(err, fmt.Sprintf("Handler: %s", t.HandlerName))
		return err
	}

	q.notifySubscribers(t)
	return nil
}

// Dequeue gets the oldest queued task and marks it as running.
// Returns nil when the queue is empty.
func (q *Queue) Dequeue() (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.NextQueued()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get queued task")
	}
	if t == nil {
		return nil, nil
	}

	t.Start()
	if err := q.store.UpdateTask(t); err != nil {
		err = errors.Wrap(err, "failed to mark task as running")
		err = errors.WithDetail(err, fmt.Sprintf("Task ID: %s", t.ID))
		return nil, err
	}

	q.notifySubscribers(t)
	return t, nil
}

// GetTask retrieves a task by ID
func (q *Queue) GetTask(id string) (*Task, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.store.GetTask(id)
}

// UpdateTask updates a task's state
func (q *Queue) UpdateTask(t *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.UpdateTask(t); err != nil {
		err = errors.Wrap(err, "failed to update task")
		err = errors.WithDetail(err, fmt.Sprintf("Task ID: %s", t.ID))
		err = errors.WithDetail(err, fmt.Sprintf("Status: %s", t.Status))
		return err
	}

	q.notifySubscribers(t)
	return nil
}

// CompleteTask marks a task as completed
func (q *Queue) CompleteTask(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.GetTask(id)
	if err != nil {
		return errors.Wrapf(err, "failed to complete task %s", id)
	}

	t.Complete()
	if err := q.store.UpdateTask(t); err != nil {
		err = errors.Wrap(err, "failed to mark task as completed")
		err = errors.WithDetail(err, fmt.Sprintf("Task ID: %s", t.ID))
		return err
	}

	q.notifySubscribers(t)
	return nil
}

// FailTask marks a task as failed with an error
func (q *Queue) FailTask(id string, taskErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.GetTask(id)
	if err != nil {
		return errors.Wrapf(err, "failed to mark task %s as failed", id)
	}

	t.Fail(taskErr)
	if err := q.store.UpdateTask(t); err != nil {
		err = errors.Wrap(err, "failed to mark task as failed")
		err = errors.WithDetail(err, fmt.Sprintf("Task ID: %s", t.ID))
		err = errors.WithDetail(err, fmt.Sprintf("Task error: %s", taskErr.Error()))
		return err
	}

	q.notifySubscribers(t)
	return nil
}

// CancelTask marks a queued task as cancelled. Running tasks are left to
// finish; the pipeline's own cancellation flags stop their follow-up work.
func (q *Queue) CancelTask(id string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.store.GetTask(id)
	if err != nil {
		return errors.Wrapf(err, "failed to cancel task %s", id)
	}

	if t.Status != StatusQueued {
		return errors.Newf("task %s is not queued (status: %s)", id, t.Status)
	}

	t.Cancel(reason)
	if err := q.store.UpdateTask(t); err != nil {
		return errors.Wrapf(err, "failed to cancel task %s", id)
	}

	q.notifySubscribers(t)
	return nil
}

// ListTasks returns tasks, optionally filtered by status
func (q *Queue) ListTasks(status *Status, limit int) ([]*Task, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.store.ListTasks(status, limit)
}

// Counts returns quick counts of queued and running tasks
func (q *Queue) Counts() (queued int, running int, err error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	queued, err = q.store.CountByStatus(StatusQueued)
	if err != nil {
		return 0, 0, err
	}
	running, err = q.store.CountByStatus(StatusRunning)
	if err != nil {
		return 0, 0, err
	}
	return queued, running, nil
}

// FindActiveBySource finds a queued or running task by source and handler.
// Used for deduplication: the scheduler skips enqueueing when an identical
// task is already in flight.
func (q *Queue) FindActiveBySource(source string, handlerName string) (*Task, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.store.FindActiveBySource(source, handlerName)
}

// Cleanup removes old terminal tasks
func (q *Queue) Cleanup(olderThan time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.store.CleanupOldTasks(olderThan)
}

// Subscribe returns a channel that receives task updates.
// The caller is responsible for calling Unsubscribe when done.
// The returned channel is buffered to prevent blocking the notifier.
func (q *Queue) Subscribe() chan *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan *Task, SubscriberChannelBufferSize)
	q.subscribers = append(q.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel from the queue.
// The channel is NOT closed by this method - callers should close it
// themselves after unsubscribing if needed.
func (q *Queue) Unsubscribe(ch chan *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, sub := range q.subscribers {
		if sub == ch {
			q.subscribers = append(q.subscribers[:i], q.subscribers[i+1:]...)
			return
		}
	}
}

// notifySubscribers sends task updates to all subscribers.
// REQUIRES: q.mu must be held by caller (either Lock or RLock).
// Uses non-blocking send to avoid stalling if a subscriber is slow.
func (q *Queue) notifySubscribers(t *Task) {
	for _, ch := range q.subscribers {
		select {
		case ch <- t:
		default:
			// Channel full, skip
		}
	}
}
