package scrape

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jobrake/jobrake/errors"
)

const jobSelectColumns = `id, status, board_ids, priority, items_found, items_created,
	last_error, cancel_requested, scheduled_scrape_id,
	created_at, started_at, completed_at, updated_at`

// JobStore handles persistence of scrape jobs
type JobStore struct {
	db *sql.DB
}

// NewJobStore creates a new scrape job store
func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

// Create inserts a new scrape job
func (s *JobStore) Create(j *Job) error {
	boardIDs, err := json.Marshal(j.BoardIDs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal board ids")
	}

	_, err = s.db.Exec(`
		INSERT INTO scrape_jobs (
			id, status, board_ids, priority, items_found, items_created,
			last_error, cancel_requested, scheduled_scrape_id,
			created_at, started_at, completed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		j.ID, j.Status, string(boardIDs), j.Priority, j.ItemsFound, j.ItemsCreated,
		j.LastError, j.CancelRequested, j.ScheduledScrapeID,
		j.CreatedAt, j.StartedAt, j.CompletedAt, j.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create scrape job")
	}

	return nil
}

// Get retrieves a scrape job by ID
func (s *JobStore) Get(id string) (*Job, error) {
	row := s.db.QueryRow(`SELECT `+jobSelectColumns+` FROM scrape_jobs WHERE id = ?`, id)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("scrape job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get scrape job %s", id)
	}
	return j, nil
}

// Update rewrites the job's mutable state
func (s *JobStore) Update(j *Job) error {
	j.UpdatedAt = time.Now()
	result, err := s.db.Exec(`
		UPDATE scrape_jobs
		SET status = ?, items_found = ?, items_created = ?, last_error = ?,
		    cancel_requested = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`,
		j.Status, j.ItemsFound, j.ItemsCreated, j.LastError,
		j.CancelRequested, j.StartedAt, j.CompletedAt, j.UpdatedAt,
		j.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update scrape job %s", j.ID)
	}
	return requireJobRow(result, j.ID)
}

// RequestCancel records the cancellation flag. Task handlers consult it at
// their dispatch boundaries; in-flight work finishes.
func (s *JobStore) RequestCancel(id string) error {
	result, err := s.db.Exec(`
		UPDATE scrape_jobs SET cancel_requested = 1, updated_at = ? WHERE id = ?
	`, time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to request cancel for scrape job %s", id)
	}
	return requireJobRow(result, id)
}

// AddItemsFound atomically adds to the job's items_found counter
func (s *JobStore) AddItemsFound(id string, delta int) error {
	result, err := s.db.Exec(`
		UPDATE scrape_jobs SET items_found = items_found + ?, updated_at = ? WHERE id = ?
	`, delta, time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to add items found to scrape job %s", id)
	}
	return requireJobRow(result, id)
}

// IncrementItemsCreated atomically bumps the job's items_created counter.
// Called from normalization tasks that may run concurrently.
func (s *JobStore) IncrementItemsCreated(id string) error {
	result, err := s.db.Exec(`
		UPDATE scrape_jobs SET items_created = items_created + 1, updated_at = ? WHERE id = ?
	`, time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to increment items created for scrape job %s", id)
	}
	return requireJobRow(result, id)
}

// List returns scrape jobs, optionally filtered by status, newest first
func (s *JobStore) List(status *JobStatus, limit int) ([]*Job, error) {
	var rows *sql.Rows
	var err error
	if status != nil {
		rows, err = s.db.Query(`
			SELECT `+jobSelectColumns+` FROM scrape_jobs
			WHERE status = ? ORDER BY created_at DESC LIMIT ?
		`, *status, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT `+jobSelectColumns+` FROM scrape_jobs
			ORDER BY created_at DESC LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list scrape jobs")
	}
	defer rows.Close()

	return collectJobs(rows)
}

// CountByStatus returns the number of jobs in the given status
func (s *JobStore) CountByStatus(status JobStatus) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM scrape_jobs WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count %s scrape jobs", status)
	}
	return count, nil
}

// CountActiveForSchedule returns how many of a schedule's jobs are still
// pending or running. Used to keep schedules from stacking jobs.
func (s *JobStore) CountActiveForSchedule(scheduleID string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM scrape_jobs
		WHERE scheduled_scrape_id = ? AND status IN ('pending', 'running')
	`, scheduleID).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count active jobs for schedule %s", scheduleID)
	}
	return count, nil
}

// CountCompletedSince returns jobs completed at or after the cutoff
func (s *JobStore) CountCompletedSince(cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM scrape_jobs WHERE status = 'completed' AND completed_at >= ?
	`, cutoff).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count completed scrape jobs")
	}
	return count, nil
}

// ListRecentFinished returns the most recently finished jobs (completed,
// failed, or cancelled), newest first. Used for the rolling success rate.
func (s *JobStore) ListRecentFinished(limit int) ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT `+jobSelectColumns+` FROM scrape_jobs
		WHERE status IN ('completed', 'failed', 'cancelled')
		ORDER BY completed_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list finished scrape jobs")
	}
	defer rows.Close()

	return collectJobs(rows)
}

func requireJobRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("scrape job %s", id)
	}
	return nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan scrape job")
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating scrape jobs")
	}
	return jobs, nil
}

func scanJob(row interface{ Scan(...interface{}) error }) (*Job, error) {
	var j Job
	var status string
	var boardIDs string
	var lastError sql.NullString
	var cancelRequested int
	var scheduledScrapeID sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &status, &boardIDs, &j.Priority, &j.ItemsFound, &j.ItemsCreated,
		&lastError, &cancelRequested, &scheduledScrapeID,
		&j.CreatedAt, &startedAt, &completedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.Status = JobStatus(status)
	if err := json.Unmarshal([]byte(boardIDs), &j.BoardIDs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal board ids")
	}
	if lastError.Valid {
		j.LastError = lastError.String
	}
	j.CancelRequested = cancelRequested != 0
	if scheduledScrapeID.Valid {
		j.ScheduledScrapeID = &scheduledScrapeID.String
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}

	return &j, nil
}
