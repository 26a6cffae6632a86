package task

import (
	"database/sql"
	"time"

	"github.com/jobrake/jobrake/errors"
)

// Store handles persistence of queue tasks
type Store struct {
	db *sql.DB
}

// NewStore creates a new task store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateTask inserts a new task into the database
func (s *Store) CreateTask(t *Task) error {
	query := `
		INSERT INTO tasks (
			id, handler_name, payload, source, status,
			retry_count, not_before, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	payload := sql.NullString{String: string(t.Payload), Valid: len(t.Payload) > 0}

	_, err := s.db.Exec(query,
		t.ID,
		t.HandlerName,
		payload,
		t.Source,
		t.Status,
		t.RetryCount,
		t.NotBefore,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create task")
	}

	return nil
}

// GetTask retrieves a task by ID
func (s *Store) GetTask(id string) (*Task, error) {
	query := `SELECT ` + taskSelectColumns + ` FROM tasks WHERE id = ?`

	var t Task
	args := &taskScanArgs{}
	err := s.db.QueryRow(query, id).Scan(taskScanTargets(&t, args)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("task %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get task")
	}
	applyTaskScanArgs(&t, args)

	return &t, nil
}

// UpdateTask updates an existing task in the database
func (s *Store) UpdateTask(t *Task) error {
	query := `
		UPDATE tasks
		SET payload = ?,
		    status = ?,
		    retry_count = ?,
		    error = ?,
		    not_before = ?,
		    started_at = ?,
		    completed_at = ?,
		    updated_at = ?
		WHERE id = ?
	`

	payload := sql.NullString{String: string(t.Payload), Valid: len(t.Payload) > 0}

	_, err := s.db.Exec(query,
		payload,
		t.Status,
		t.RetryCount,
		t.Error,
		t.NotBefore,
		t.StartedAt,
		t.CompletedAt,
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update task")
	}

	return nil
}

// ListTasks returns tasks, optionally filtered by status, newest first
func (s *Store) ListTasks(status *Status, limit int) ([]*Task, error) {
	var query string
	var args []interface{}

	baseQuery := `SELECT ` + taskSelectColumns + ` FROM tasks`
	if status != nil {
		query = baseQuery + ` WHERE status = ? ORDER BY created_at DESC LIMIT ?`
		args = []interface{}{*status, limit}
	} else {
		query = baseQuery + ` ORDER BY created_at DESC LIMIT ?`
		args = []interface{}{limit}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}
	defer rows.Close()

	return scanTasks(rows, "tasks")
}

// NextQueued returns the oldest queued task whose redelivery delay has
// elapsed, or nil if no task is ready
func (s *Store) NextQueued() (*Task, error) {
	query := `SELECT ` + taskSelectColumns + `
		FROM tasks
		WHERE status = 'queued'
		  AND (not_before IS NULL OR not_before <= ?)
		ORDER BY created_at ASC
		LIMIT 1`

	var t Task
	args := &taskScanArgs{}
	err := s.db.QueryRow(query, time.Now()).Scan(taskScanTargets(&t, args)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get next queued task")
	}
	applyTaskScanArgs(&t, args)

	return &t, nil
}

// CountByStatus returns the number of tasks in the given status
func (s *Store) CountByStatus(status Status) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count %s tasks", status)
	}
	return count, nil
}

// ListRunning returns all tasks currently marked running. Used on startup to
// recover tasks orphaned by an ungraceful shutdown.
func (s *Store) ListRunning(limit int) ([]*Task, error) {
	query := `SELECT ` + taskSelectColumns + `
		FROM tasks
		WHERE status = 'running'
		ORDER BY created_at ASC
		LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list running tasks")
	}
	defer rows.Close()

	return scanTasks(rows, "running tasks")
}

// FindActiveBySource finds a queued or running task by source and handler
// name. Returns nil if no active task exists for this source.
func (s *Store) FindActiveBySource(source string, handlerName string) (*Task, error) {
	query := `SELECT ` + taskSelectColumns + `
		FROM tasks
		WHERE source = ?
		  AND handler_name = ?
		  AND status IN ('queued', 'running')
		ORDER BY created_at DESC
		LIMIT 1`

	var t Task
	args := &taskScanArgs{}
	err := s.db.QueryRow(query, source, handlerName).Scan(taskScanTargets(&t, args)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No active task - this is not an error
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find active task by source")
	}
	applyTaskScanArgs(&t, args)

	return &t, nil
}

// CleanupOldTasks removes completed/failed/cancelled tasks older than the
// specified duration. Returns the number of rows removed.
func (s *Store) CleanupOldTasks(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := s.db.Exec(`
		DELETE FROM tasks
		WHERE status IN ('completed', 'failed', 'cancelled')
		  AND updated_at < ?
	`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old tasks")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}

	return int(rows), nil
}

// scanTasks is a helper that scans multiple tasks from query rows.
func scanTasks(rows *sql.Rows, context string) ([]*Task, error) {
	var tasks []*Task
	for rows.Next() {
		var t Task
		if err := scanTaskFromRows(rows, &t); err != nil {
			return nil, errors.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating %s", context)
	}

	return tasks, nil
}
