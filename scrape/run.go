package scrape

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunStatus is a scrape run's lifecycle state
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether the status is final
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Run is one board's execution attempt within a scrape job. A failed run
// never aborts sibling runs; the parent job aggregates their totals.
type Run struct {
	ID             string     `json:"id"`
	ScrapeJobID    string     `json:"scrape_job_id"`
	BoardID        string     `json:"board_id"`
	Status         RunStatus  `json:"status"`
	PagesScraped   int        `json:"pages_scraped"`
	ItemsFound     int        `json:"items_found"`
	ItemsProcessed int        `json:"items_processed"`
	ItemsCreated   int        `json:"items_created"`
	HTTPStatus     *int       `json:"http_status,omitempty"`
	ResponseBytes  int        `json:"response_bytes"`
	Error          string     `json:"error,omitempty"`
	Metadata       string     `json:"metadata,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func newRunID() string {
	return "SR_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewRun creates a running scrape run for one board
func NewRun(jobID, boardID string) *Run {
	now := time.Now()
	return &Run{
		ID:          newRunID(),
		ScrapeJobID: jobID,
		BoardID:     boardID,
		Status:      RunStatusRunning,
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Complete marks the run completed
func (r *Run) Complete() {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// Fail marks the run failed with an error message
func (r *Run) Fail(err error) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.Error = err.Error()
	r.CompletedAt = &now
	r.UpdatedAt = now
}
