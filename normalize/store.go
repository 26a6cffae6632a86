package normalize

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jobrake/jobrake/errors"
)

const normalizedSelectColumns = `id, raw_job_id, board_id, title, company, location,
	description, source_url, salary_min, salary_max, salary_currency,
	job_type, experience_level, skills, benefits, is_remote, posted_at,
	confidence_score, status, job_post_id, created_at, updated_at`

// Store handles persistence of normalized jobs
type Store struct {
	db *sql.DB
}

// NewStore creates a new normalized job store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a normalized job
func (s *Store) Create(nj *NormalizedJob) error {
	skills, err := json.Marshal(nj.Skills)
	if err != nil {
		return errors.Wrap(err, "failed to marshal skills")
	}
	benefits, err := json.Marshal(nj.Benefits)
	if err != nil {
		return errors.Wrap(err, "failed to marshal benefits")
	}

	_, err = s.db.Exec(`
		INSERT INTO normalized_jobs (
			id, raw_job_id, board_id, title, company, location,
			description, source_url, salary_min, salary_max, salary_currency,
			job_type, experience_level, skills, benefits, is_remote, posted_at,
			confidence_score, status, job_post_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nj.ID, nj.RawJobID, nj.BoardID, nj.Title, nj.Company, nj.Location,
		nj.Description, nj.SourceURL, nj.SalaryMin, nj.SalaryMax, nj.SalaryCurrency,
		nj.JobType, nj.ExperienceLevel, string(skills), string(benefits), nj.IsRemote, nj.PostedAt,
		nj.ConfidenceScore, nj.Status, nj.JobPostID, nj.CreatedAt, nj.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create normalized job for raw job %s", nj.RawJobID)
	}

	return nil
}

// Get retrieves a normalized job by ID
func (s *Store) Get(id string) (*NormalizedJob, error) {
	row := s.db.QueryRow(`SELECT `+normalizedSelectColumns+` FROM normalized_jobs WHERE id = ?`, id)

	nj, err := scanNormalizedJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("normalized job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get normalized job %s", id)
	}
	return nj, nil
}

// SetStatus records the job's review outcome, optionally linking a post
func (s *Store) SetStatus(id string, status Status, jobPostID *string) error {
	result, err := s.db.Exec(`
		UPDATE normalized_jobs SET status = ?, job_post_id = ?, updated_at = ? WHERE id = ?
	`, status, jobPostID, time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to update normalized job %s status", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("normalized job %s", id)
	}
	return nil
}

// ListByStatus returns normalized jobs in the given status, newest first
func (s *Store) ListByStatus(status Status, limit int) ([]*NormalizedJob, error) {
	rows, err := s.db.Query(`
		SELECT `+normalizedSelectColumns+` FROM normalized_jobs
		WHERE status = ? ORDER BY created_at DESC LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s normalized jobs", status)
	}
	defer rows.Close()

	var jobs []*NormalizedJob
	for rows.Next() {
		nj, err := scanNormalizedJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan normalized job")
		}
		jobs = append(jobs, nj)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating normalized jobs")
	}

	return jobs, nil
}

func scanNormalizedJob(row interface{ Scan(...interface{}) error }) (*NormalizedJob, error) {
	var nj NormalizedJob
	var salaryMin, salaryMax sql.NullFloat64
	var skills, benefits string
	var isRemote int
	var postedAt sql.NullTime
	var status string
	var jobPostID sql.NullString

	err := row.Scan(
		&nj.ID, &nj.RawJobID, &nj.BoardID, &nj.Title, &nj.Company, &nj.Location,
		&nj.Description, &nj.SourceURL, &salaryMin, &salaryMax, &nj.SalaryCurrency,
		&nj.JobType, &nj.ExperienceLevel, &skills, &benefits, &isRemote, &postedAt,
		&nj.ConfidenceScore, &status, &jobPostID, &nj.CreatedAt, &nj.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if salaryMin.Valid {
		nj.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		nj.SalaryMax = &salaryMax.Float64
	}
	if err := json.Unmarshal([]byte(skills), &nj.Skills); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal skills")
	}
	if err := json.Unmarshal([]byte(benefits), &nj.Benefits); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal benefits")
	}
	nj.IsRemote = isRemote != 0
	if postedAt.Valid {
		nj.PostedAt = &postedAt.Time
	}
	nj.Status = Status(status)
	if jobPostID.Valid {
		nj.JobPostID = &jobPostID.String
	}

	return &nj, nil
}
