// Package task provides the durable task queue and worker pool that drive
// the scraping pipeline. Tasks are persisted rows; handlers are registered
// by name and executed by the pool.
package task

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobrake/jobrake/errors"
)

// Status represents the current state of a task
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsValidStatus returns true if the status string is a valid Status
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Task represents one unit of asynchronous pipeline work.
//
// The queue is domain-agnostic: HandlerName identifies which registered
// handler executes the task, and Payload carries handler-specific data.
// Source holds a stable identifier (scrape job ID, raw job ID) used for
// deduplication and logging.
type Task struct {
	ID          string          `json:"id"`
	HandlerName string          `json:"handler_name"` // "scrape.job", "scrape.board", "ingest.normalize"
	Payload     json.RawMessage `json:"payload,omitempty"`
	Source      string          `json:"source"`
	Status      Status          `json:"status"`
	RetryCount  int             `json:"retry_count,omitempty"`
	Error       string          `json:"error,omitempty"`
	NotBefore   *time.Time      `json:"not_before,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// New creates a queued task for the given handler.
//
// Example:
//
//	payload, _ := json.Marshal(BoardPayload{JobID: job.ID, BoardID: board.ID})
//	tk, _ := task.New("scrape.board", job.ID, payload)
func New(handlerName string, source string, payload json.RawMessage) (*Task, error) {
	if handlerName == "" {
		return nil, errors.New("handlerName cannot be empty")
	}

	now := time.Now()
	return &Task{
		ID:          newTaskID(),
		HandlerName: handlerName,
		Payload:     payload,
		Source:      source,
		Status:      StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func newTaskID() string {
	return "TK_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Start marks the task as running. Any redelivery delay is consumed by the
// claim, so it is cleared here.
func (t *Task) Start() {
	now := time.Now()
	t.Status = StatusRunning
	t.StartedAt = &now
	t.NotBefore = nil
	t.UpdatedAt = now
}

// Complete marks the task as completed
func (t *Task) Complete() {
	now := time.Now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Fail marks the task as failed with an error message
func (t *Task) Fail(err error) {
	now := time.Now()
	t.Status = StatusFailed
	t.Error = err.Error()
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Cancel marks the task as cancelled with a reason
func (t *Task) Cancel(reason string) {
	now := time.Now()
	t.Status = StatusCancelled
	t.Error = reason
	t.CompletedAt = &now
	t.UpdatedAt = now
}
