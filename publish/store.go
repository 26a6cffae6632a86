package publish

import (
	"database/sql"
	"encoding/json"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/jobrake/jobrake/errors"
)

const postSelectColumns = `id, board_id, title, company, location, description,
	source_url, salary_min, salary_max, salary_currency, job_type,
	experience_level, skills, benefits, is_remote, status, posted_at,
	created_at, updated_at`

// Store handles persistence of job posts
type Store struct {
	db *sql.DB
}

// NewStore creates a new job post store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a post. A second post with the same source_url returns
// ErrConflict; the publisher links to the existing post instead.
func (s *Store) Create(p *JobPost) error {
	skills, err := json.Marshal(p.Skills)
	if err != nil {
		return errors.Wrap(err, "failed to marshal skills")
	}
	benefits, err := json.Marshal(p.Benefits)
	if err != nil {
		return errors.Wrap(err, "failed to marshal benefits")
	}

	_, err = s.db.Exec(`
		INSERT INTO job_posts (
			id, board_id, title, company, location, description,
			source_url, salary_min, salary_max, salary_currency, job_type,
			experience_level, skills, benefits, is_remote, status, posted_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.BoardID, p.Title, p.Company, p.Location, p.Description,
		p.SourceURL, p.SalaryMin, p.SalaryMax, p.SalaryCurrency, p.JobType,
		p.ExperienceLevel, string(skills), string(benefits), p.IsRemote, p.Status, p.PostedAt,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return errors.Wrapf(errors.ErrConflict, "post already exists for source url %s", p.SourceURL)
		}
		return errors.Wrap(err, "failed to create job post")
	}

	return nil
}

// Get retrieves a post by ID
func (s *Store) Get(id string) (*JobPost, error) {
	row := s.db.QueryRow(`SELECT `+postSelectColumns+` FROM job_posts WHERE id = ?`, id)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("job post %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get job post %s", id)
	}
	return p, nil
}

// GetBySourceURL retrieves the post for a source URL, or nil if none exists
func (s *Store) GetBySourceURL(sourceURL string) (*JobPost, error) {
	row := s.db.QueryRow(`SELECT `+postSelectColumns+` FROM job_posts WHERE source_url = ?`, sourceURL)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get job post by source url %s", sourceURL)
	}
	return p, nil
}

// List returns posts, optionally filtered by status, newest first
func (s *Store) List(status *PostStatus, limit int) ([]*JobPost, error) {
	var rows *sql.Rows
	var err error
	if status != nil {
		rows, err = s.db.Query(`
			SELECT `+postSelectColumns+` FROM job_posts
			WHERE status = ? ORDER BY created_at DESC LIMIT ?
		`, *status, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT `+postSelectColumns+` FROM job_posts
			ORDER BY created_at DESC LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list job posts")
	}
	defer rows.Close()

	var posts []*JobPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan job post")
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating job posts")
	}

	return posts, nil
}

// Count returns the total number of posts
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM job_posts`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count job posts")
	}
	return count, nil
}

func scanPost(row interface{ Scan(...interface{}) error }) (*JobPost, error) {
	var p JobPost
	var salaryMin, salaryMax sql.NullFloat64
	var skills, benefits string
	var isRemote int
	var status string
	var postedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.BoardID, &p.Title, &p.Company, &p.Location, &p.Description,
		&p.SourceURL, &salaryMin, &salaryMax, &p.SalaryCurrency, &p.JobType,
		&p.ExperienceLevel, &skills, &benefits, &isRemote, &status, &postedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if salaryMin.Valid {
		p.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		p.SalaryMax = &salaryMax.Float64
	}
	if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal skills")
	}
	if err := json.Unmarshal([]byte(benefits), &p.Benefits); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal benefits")
	}
	p.IsRemote = isRemote != 0
	p.Status = PostStatus(status)
	if postedAt.Valid {
		p.PostedAt = &postedAt.Time
	}

	return &p, nil
}
