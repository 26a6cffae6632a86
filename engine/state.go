// Package engine maintains the process-wide heartbeat record: a single row
// summarizing pipeline load for health checks and dashboards. Last-writer-wins;
// never used for coordination.
package engine

import (
	"database/sql"
	"time"

	"github.com/jobrake/jobrake/errors"
)

// Status summarizes the engine's current load
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusRunning Status = "running"
)

// State is the single-row engine heartbeat record
type State struct {
	Status               Status    `json:"status"`
	ActiveJobs           int       `json:"active_jobs"`
	QueuedJobs           int       `json:"queued_jobs"`
	JobsProcessedToday   int       `json:"jobs_processed_today"`
	PendingNormalization int       `json:"pending_normalization"`
	SuccessRate          float64   `json:"success_rate"`
	LastHeartbeatAt      time.Time `json:"last_heartbeat_at"`
}

// StateStore persists the engine state row
type StateStore struct {
	db *sql.DB
}

// NewStateStore creates an engine state store
func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

// Get returns the current engine state, or an idle zero state when no
// heartbeat has been recorded yet.
func (s *StateStore) Get() (*State, error) {
	var st State
	var status string
	err := s.db.QueryRow(`
		SELECT status, active_jobs, queued_jobs, jobs_processed_today,
		       pending_normalization, success_rate, last_heartbeat_at
		FROM engine_state WHERE id = 1
	`).Scan(
		&status, &st.ActiveJobs, &st.QueuedJobs, &st.JobsProcessedToday,
		&st.PendingNormalization, &st.SuccessRate, &st.LastHeartbeatAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &State{Status: StatusIdle}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get engine state")
	}

	st.Status = Status(status)
	return &st, nil
}

// Put upserts the single state row
func (s *StateStore) Put(st *State) error {
	_, err := s.db.Exec(`
		INSERT INTO engine_state (
			id, status, active_jobs, queued_jobs, jobs_processed_today,
			pending_normalization, success_rate, last_heartbeat_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			active_jobs = excluded.active_jobs,
			queued_jobs = excluded.queued_jobs,
			jobs_processed_today = excluded.jobs_processed_today,
			pending_normalization = excluded.pending_normalization,
			success_rate = excluded.success_rate,
			last_heartbeat_at = excluded.last_heartbeat_at
	`,
		st.Status, st.ActiveJobs, st.QueuedJobs, st.JobsProcessedToday,
		st.PendingNormalization, st.SuccessRate, st.LastHeartbeatAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to put engine state")
	}
	return nil
}
