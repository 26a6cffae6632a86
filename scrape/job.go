// Package scrape orchestrates the fetch, persist, normalize, and publish
// pipeline. A scrape job fans out into one run per board, each executed as
// an independent queue task; per-item normalization fans out further.
package scrape

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobrake/jobrake/errors"
)

// JobStatus is a scrape job's lifecycle state
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status is final
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Job is one logical scraping invocation over one or more boards
type Job struct {
	ID                string     `json:"id"`
	Status            JobStatus  `json:"status"`
	BoardIDs          []string   `json:"board_ids"`
	Priority          int        `json:"priority"`
	ItemsFound        int        `json:"items_found"`
	ItemsCreated      int        `json:"items_created"`
	LastError         string     `json:"last_error,omitempty"`
	CancelRequested   bool       `json:"cancel_requested"`
	ScheduledScrapeID *string    `json:"scheduled_scrape_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func newJobID() string {
	return "SJ_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewJob creates a pending scrape job over the given boards
func NewJob(boardIDs []string, priority int, scheduledScrapeID *string) (*Job, error) {
	if len(boardIDs) == 0 {
		return nil, errors.NewInvalidConfig("scrape job requires at least one board")
	}

	now := time.Now()
	return &Job{
		ID:                newJobID(),
		Status:            JobStatusPending,
		BoardIDs:          boardIDs,
		Priority:          priority,
		ScheduledScrapeID: scheduledScrapeID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Start marks the job running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// Complete marks the job completed
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Fail marks the job failed with an error message
func (j *Job) Fail(err error) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.LastError = err.Error()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Cancel marks the job cancelled
func (j *Job) Cancel() {
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
}
