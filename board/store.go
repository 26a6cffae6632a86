package board

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobrake/jobrake/errors"
)

const boardSelectColumns = `id, name, kind, source_config, request_timeout_seconds,
	retry_attempts, quality_threshold, is_active, total_scrapes,
	successful_scrapes, failed_scrapes, last_scraped_at, created_at, updated_at`

// Store handles persistence of job boards
type Store struct {
	db *sql.DB
}

// NewStore creates a new board store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func newBoardID() string {
	return "JB_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create validates and inserts a new board. The ID is assigned here if the
// caller left it empty.
func (s *Store) Create(b *Board) error {
	if err := b.Validate(); err != nil {
		return err
	}

	if b.ID == "" {
		b.ID = newBoardID()
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	configJSON, err := marshalSourceConfig(b.SourceConfig)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO job_boards (
			id, name, kind, source_config, request_timeout_seconds,
			retry_attempts, quality_threshold, is_active, total_scrapes,
			successful_scrapes, failed_scrapes, last_scraped_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.Name, b.Kind, configJSON, b.RequestTimeout,
		b.RetryAttempts, b.QualityThreshold, b.IsActive, b.TotalScrapes,
		b.SuccessfulScrapes, b.FailedScrapes, b.LastScrapedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create board %s", b.Name)
	}

	return nil
}

// Get retrieves a board by ID
func (s *Store) Get(id string) (*Board, error) {
	row := s.db.QueryRow(`SELECT `+boardSelectColumns+` FROM job_boards WHERE id = ?`, id)

	b, err := scanBoard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("board %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get board %s", id)
	}
	return b, nil
}

// List returns boards, optionally restricted to active ones, name order
func (s *Store) List(activeOnly bool) ([]*Board, error) {
	query := `SELECT ` + boardSelectColumns + ` FROM job_boards`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list boards")
	}
	defer rows.Close()

	var boards []*Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan board")
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating boards")
	}

	return boards, nil
}

// Update rewrites a board's configuration fields
func (s *Store) Update(b *Board) error {
	if err := b.Validate(); err != nil {
		return err
	}

	configJSON, err := marshalSourceConfig(b.SourceConfig)
	if err != nil {
		return err
	}

	b.UpdatedAt = time.Now()
	result, err := s.db.Exec(`
		UPDATE job_boards
		SET name = ?, kind = ?, source_config = ?, request_timeout_seconds = ?,
		    retry_attempts = ?, quality_threshold = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`,
		b.Name, b.Kind, configJSON, b.RequestTimeout,
		b.RetryAttempts, b.QualityThreshold, b.IsActive, b.UpdatedAt,
		b.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update board %s", b.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("board %s", b.ID)
	}

	return nil
}

// SetActive enables or disables a board. Inactive boards are skipped by
// listings with the active filter; existing jobs referencing them still run.
func (s *Store) SetActive(id string, active bool) error {
	result, err := s.db.Exec(`
		UPDATE job_boards SET is_active = ?, updated_at = ? WHERE id = ?
	`, active, time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to set board %s active state", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("board %s", id)
	}

	return nil
}

// RecordScrapeResult atomically increments the board's lifetime counters
// after a scrape run finishes.
func (s *Store) RecordScrapeResult(id string, success bool) error {
	var query string
	if success {
		query = `
			UPDATE job_boards
			SET total_scrapes = total_scrapes + 1,
			    successful_scrapes = successful_scrapes + 1,
			    last_scraped_at = ?,
			    updated_at = ?
			WHERE id = ?
		`
	} else {
		query = `
			UPDATE job_boards
			SET total_scrapes = total_scrapes + 1,
			    failed_scrapes = failed_scrapes + 1,
			    last_scraped_at = ?,
			    updated_at = ?
			WHERE id = ?
		`
	}

	now := time.Now()
	result, err := s.db.Exec(query, now, now, id)
	if err != nil {
		return errors.Wrapf(err, "failed to record scrape result for board %s", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("board %s", id)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBoard(row scanner) (*Board, error) {
	var b Board
	var kind string
	var configJSON string
	var isActive int
	var lastScrapedAt sql.NullTime

	err := row.Scan(
		&b.ID, &b.Name, &kind, &configJSON, &b.RequestTimeout,
		&b.RetryAttempts, &b.QualityThreshold, &isActive, &b.TotalScrapes,
		&b.SuccessfulScrapes, &b.FailedScrapes, &lastScrapedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Kind = Kind(kind)
	b.IsActive = isActive != 0
	if lastScrapedAt.Valid {
		b.LastScrapedAt = &lastScrapedAt.Time
	}

	sc, err := unmarshalSourceConfig(configJSON)
	if err != nil {
		return nil, err
	}
	b.SourceConfig = sc

	return &b, nil
}
