package schedule

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jobrake/jobrake/errors"
)

const scheduleSelectColumns = `id, name, board_ids, interval_seconds, state,
	last_run_at, next_run_at, created_at, updated_at`

// Store handles persistence of scrape schedules
type Store struct {
	db *sql.DB
}

// NewStore creates a new schedule store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new schedule
func (s *Store) Create(sc *Schedule) error {
	boardIDs, err := json.Marshal(sc.BoardIDs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal board ids")
	}

	_, err = s.db.Exec(`
		INSERT INTO scheduled_scrapes (
			id, name, board_ids, interval_seconds, state,
			last_run_at, next_run_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sc.ID, sc.Name, string(boardIDs), sc.IntervalSeconds, sc.State,
		sc.LastRunAt, sc.NextRunAt, sc.CreatedAt, sc.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create schedule")
	}

	return nil
}

// Get retrieves a schedule by ID
func (s *Store) Get(id string) (*Schedule, error) {
	row := s.db.QueryRow(`SELECT `+scheduleSelectColumns+` FROM scheduled_scrapes WHERE id = ?`, id)

	sc, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("schedule %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get schedule %s", id)
	}
	return sc, nil
}

// List returns all schedules, oldest first
func (s *Store) List() ([]*Schedule, error) {
	rows, err := s.db.Query(`SELECT ` + scheduleSelectColumns + ` FROM scheduled_scrapes ORDER BY created_at ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list schedules")
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// ListDue returns active schedules whose next run is at or before now
func (s *Store) ListDue(now time.Time) ([]*Schedule, error) {
	rows, err := s.db.Query(`
		SELECT `+scheduleSelectColumns+` FROM scheduled_scrapes
		WHERE state = 'active' AND next_run_at IS NOT NULL AND next_run_at <= ?
		ORDER BY next_run_at ASC
	`, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list due schedules")
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// Update rewrites the schedule's mutable state
func (s *Store) Update(sc *Schedule) error {
	boardIDs, err := json.Marshal(sc.BoardIDs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal board ids")
	}

	sc.UpdatedAt = time.Now()
	result, err := s.db.Exec(`
		UPDATE scheduled_scrapes
		SET name = ?, board_ids = ?, interval_seconds = ?, state = ?,
		    last_run_at = ?, next_run_at = ?, updated_at = ?
		WHERE id = ?
	`,
		sc.Name, string(boardIDs), sc.IntervalSeconds, sc.State,
		sc.LastRunAt, sc.NextRunAt, sc.UpdatedAt,
		sc.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update schedule %s", sc.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("schedule %s", sc.ID)
	}
	return nil
}

// SetState pauses or resumes a schedule
func (s *Store) SetState(id string, state State) error {
	result, err := s.db.Exec(`
		UPDATE scheduled_scrapes SET state = ?, updated_at = ? WHERE id = ?
	`, state, time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to set schedule %s state", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("schedule %s", id)
	}
	return nil
}

// Delete removes a schedule. Jobs it already spawned are unaffected.
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM scheduled_scrapes WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete schedule %s", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFound("schedule %s", id)
	}
	return nil
}

func collectSchedules(rows *sql.Rows) ([]*Schedule, error) {
	var schedules []*Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan schedule")
		}
		schedules = append(schedules, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating schedules")
	}
	return schedules, nil
}

func scanSchedule(row interface{ Scan(...interface{}) error }) (*Schedule, error) {
	var sc Schedule
	var state string
	var boardIDs string
	var lastRunAt, nextRunAt sql.NullTime

	err := row.Scan(
		&sc.ID, &sc.Name, &boardIDs, &sc.IntervalSeconds, &state,
		&lastRunAt, &nextRunAt, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sc.State = State(state)
	if err := json.Unmarshal([]byte(boardIDs), &sc.BoardIDs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal board ids")
	}
	if lastRunAt.Valid {
		sc.LastRunAt = &lastRunAt.Time
	}
	if nextRunAt.Valid {
		sc.NextRunAt = &nextRunAt.Time
	}

	return &sc, nil
}
