package scrape

import (
	"database/sql"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/jobrake/jobrake/errors"
)

const runSelectColumns = `id, scrape_job_id, board_id, status, pages_scraped,
	items_found, items_processed, items_created, http_status, response_bytes,
	error, metadata, started_at, completed_at, created_at, updated_at`

// RunStore handles persistence of scrape runs
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new scrape run store
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Create inserts a run. The (scrape_job_id, board_id) unique constraint
// returns ErrConflict when a run for the pair already exists, which happens
// when a board task is redelivered after a partial execution.
func (s *RunStore) Create(r *Run) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_runs (
			id, scrape_job_id, board_id, status, pages_scraped,
			items_found, items_processed, items_created, http_status, response_bytes,
			error, metadata, started_at, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.ScrapeJobID, r.BoardID, r.Status, r.PagesScraped,
		r.ItemsFound, r.ItemsProcessed, r.ItemsCreated, r.HTTPStatus, r.ResponseBytes,
		r.Error, r.Metadata, r.StartedAt, r.CompletedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return errors.Wrapf(errors.ErrConflict, "run already exists for job %s board %s", r.ScrapeJobID, r.BoardID)
		}
		return errors.Wrap(err, "failed to create scrape run")
	}

	return nil
}

// Get retrieves a run by ID
func (s *RunStore) Get(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runSelectColumns+` FROM scrape_runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("scrape run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get scrape run %s", id)
	}
	return r, nil
}

// GetByJobAndBoard retrieves the run for a (job, board) pair, or nil
func (s *RunStore) GetByJobAndBoard(jobID, boardID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT `+runSelectColumns+` FROM scrape_runs
		WHERE scrape_job_id = ? AND board_id = ?
	`, jobID, boardID)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get scrape run for job %s board %s", jobID, boardID)
	}
	return r, nil
}

// Update rewrites the run's mutable state
func (s *RunStore) Update(r *Run) error {
	r.UpdatedAt = time.Now()
	result, err := s.db.Exec(`
		UPDATE scrape_runs
		SET status = ?, pages_scraped = ?, items_found = ?, items_processed = ?,
		    items_created = ?, http_status = ?, response_bytes = ?, error = ?,
		    metadata = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`,
		r.Status, r.PagesScraped, r.ItemsFound, r.ItemsProcessed,
		r.ItemsCreated, r.HTTPStatus, r.ResponseBytes, r.Error,
		r.Metadata, r.CompletedAt, r.UpdatedAt,
		r.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update scrape run %s", r.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("scrape run %s", r.ID)
	}
	return nil
}

// IncrementItemsCreated atomically bumps the run's items_created counter
// and the parent job's alongside it.
func (s *RunStore) IncrementItemsCreated(runID string) error {
	now := time.Now()
	result, err := s.db.Exec(`
		UPDATE scrape_runs SET items_created = items_created + 1, updated_at = ? WHERE id = ?
	`, now, runID)
	if err != nil {
		return errors.Wrapf(err, "failed to increment items created for run %s", runID)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("scrape run %s", runID)
	}

	_, err = s.db.Exec(`
		UPDATE scrape_jobs
		SET items_created = items_created + 1, updated_at = ?
		WHERE id = (SELECT scrape_job_id FROM scrape_runs WHERE id = ?)
	`, now, runID)
	if err != nil {
		return errors.Wrapf(err, "failed to increment items created for run %s parent job", runID)
	}

	return nil
}

// ListByJob returns all runs for one scrape job
func (s *RunStore) ListByJob(jobID string) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT `+runSelectColumns+` FROM scrape_runs
		WHERE scrape_job_id = ? ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list runs for job %s", jobID)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan scrape run")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating scrape runs")
	}

	return runs, nil
}

// CountTerminalByJob returns how many of the job's runs are finished
func (s *RunStore) CountTerminalByJob(jobID string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM scrape_runs
		WHERE scrape_job_id = ? AND status IN ('completed', 'failed')
	`, jobID).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count terminal runs for job %s", jobID)
	}
	return count, nil
}

func scanRun(row interface{ Scan(...interface{}) error }) (*Run, error) {
	var r Run
	var status string
	var httpStatus sql.NullInt64
	var errMsg, metadata sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&r.ID, &r.ScrapeJobID, &r.BoardID, &status, &r.PagesScraped,
		&r.ItemsFound, &r.ItemsProcessed, &r.ItemsCreated, &httpStatus, &r.ResponseBytes,
		&errMsg, &metadata, &r.StartedAt, &completedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = RunStatus(status)
	if httpStatus.Valid {
		v := int(httpStatus.Int64)
		r.HTTPStatus = &v
	}
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	if metadata.Valid {
		r.Metadata = metadata.String
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}

	return &r, nil
}
