package ingest

import (
	"database/sql"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/jobrake/jobrake/errors"
)

const rawSelectColumns = `id, scrape_run_id, board_id, checksum, title, source_url,
	payload, status, status_reason, normalized_job_id, job_post_id,
	fetched_at, updated_at`

// RawStore handles persistence of raw jobs. The (board_id, checksum) unique
// constraint is the deduplication boundary: Create returns ErrConflict when
// the same content was already ingested for the board.
type RawStore struct {
	db *sql.DB
}

// NewRawStore creates a new raw job store
func NewRawStore(db *sql.DB) *RawStore {
	return &RawStore{db: db}
}

// Create inserts a raw job. A duplicate (board_id, checksum) pair returns
// ErrConflict; callers count it and move on.
func (s *RawStore) Create(r *RawJob) error {
	_, err := s.db.Exec(`
		INSERT INTO raw_jobs (
			id, scrape_run_id, board_id, checksum, title, source_url,
			payload, status, status_reason, normalized_job_id, job_post_id,
			fetched_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.ScrapeRunID, r.BoardID, r.Checksum, r.Title, r.SourceURL,
		string(r.Payload), r.Status, r.StatusReason, r.NormalizedJobID, r.JobPostID,
		r.FetchedAt, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(errors.ErrConflict, "raw job already ingested for board %s (checksum %s)", r.BoardID, r.Checksum)
		}
		return errors.Wrap(err, "failed to create raw job")
	}

	return nil
}

// Get retrieves a raw job by ID
func (s *RawStore) Get(id string) (*RawJob, error) {
	row := s.db.QueryRow(`SELECT `+rawSelectColumns+` FROM raw_jobs WHERE id = ?`, id)

	r, err := scanRawJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("raw job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get raw job %s", id)
	}
	return r, nil
}

// UpdateStatus records a raw job's processing outcome
func (s *RawStore) UpdateStatus(id string, status RawStatus, reason string) error {
	result, err := s.db.Exec(`
		UPDATE raw_jobs SET status = ?, status_reason = ?, updated_at = ? WHERE id = ?
	`, status, reason, time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to update raw job %s status", id)
	}
	return requireRowAffected(result, id)
}

// MarkNormalized links the raw job to its normalized output
func (s *RawStore) MarkNormalized(id string, normalizedJobID string) error {
	result, err := s.db.Exec(`
		UPDATE raw_jobs
		SET status = ?, status_reason = '', normalized_job_id = ?, updated_at = ?
		WHERE id = ?
	`, RawStatusNormalized, normalizedJobID, time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to mark raw job %s normalized", id)
	}
	return requireRowAffected(result, id)
}

// SetJobPost links the raw job to its published post
func (s *RawStore) SetJobPost(id string, jobPostID string) error {
	result, err := s.db.Exec(`
		UPDATE raw_jobs SET job_post_id = ?, updated_at = ? WHERE id = ?
	`, jobPostID, time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to link raw job %s to post", id)
	}
	return requireRowAffected(result, id)
}

// ListByRun returns all raw jobs persisted for one scrape run
func (s *RawStore) ListByRun(runID string) ([]*RawJob, error) {
	rows, err := s.db.Query(`
		SELECT `+rawSelectColumns+` FROM raw_jobs
		WHERE scrape_run_id = ? ORDER BY fetched_at ASC
	`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list raw jobs for run %s", runID)
	}
	defer rows.Close()

	return collectRawJobs(rows)
}

// ListByStatus returns raw jobs in the given status, oldest first
func (s *RawStore) ListByStatus(status RawStatus, limit int) ([]*RawJob, error) {
	rows, err := s.db.Query(`
		SELECT `+rawSelectColumns+` FROM raw_jobs
		WHERE status = ? ORDER BY fetched_at ASC LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s raw jobs", status)
	}
	defer rows.Close()

	return collectRawJobs(rows)
}

// CountByStatus returns the number of raw jobs in the given status
func (s *RawStore) CountByStatus(status RawStatus) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM raw_jobs WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count %s raw jobs", status)
	}
	return count, nil
}

func requireRowAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("raw job %s", id)
	}
	return nil
}

func collectRawJobs(rows *sql.Rows) ([]*RawJob, error) {
	var jobs []*RawJob
	for rows.Next() {
		r, err := scanRawJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan raw job")
		}
		jobs = append(jobs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating raw jobs")
	}
	return jobs, nil
}

func scanRawJob(row interface{ Scan(...interface{}) error }) (*RawJob, error) {
	var r RawJob
	var payload string
	var status string
	var statusReason sql.NullString
	var normalizedJobID sql.NullString
	var jobPostID sql.NullString

	err := row.Scan(
		&r.ID, &r.ScrapeRunID, &r.BoardID, &r.Checksum, &r.Title, &r.SourceURL,
		&payload, &status, &statusReason, &normalizedJobID, &jobPostID,
		&r.FetchedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Payload = []byte(payload)
	r.Status = RawStatus(status)
	if statusReason.Valid {
		r.StatusReason = statusReason.String
	}
	if normalizedJobID.Valid {
		r.NormalizedJobID = &normalizedJobID.String
	}
	if jobPostID.Valid {
		r.JobPostID = &jobPostID.String
	}

	return &r, nil
}

// isUniqueViolation reports whether the error is a sqlite unique constraint
// failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
