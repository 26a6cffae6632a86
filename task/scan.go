package task

import (
	"database/sql"
)

// taskScanArgs holds the nullable columns scanned from a task row.
type taskScanArgs struct {
	Payload     sql.NullString
	ErrorMsg    sql.NullString
	NotBefore   sql.NullTime
	StartedAt   sql.NullTime
	CompletedAt sql.NullTime
}

func taskScanTargets(t *Task, args *taskScanArgs) []interface{} {
	return []interface{}{
		&t.ID,
		&t.HandlerName,
		&args.Payload,
		&t.Source,
		&t.Status,
		&t.RetryCount,
		&args.ErrorMsg,
		&args.NotBefore,
		&t.CreatedAt,
		&args.StartedAt,
		&args.CompletedAt,
		&t.UpdatedAt,
	}
}

func applyTaskScanArgs(t *Task, args *taskScanArgs) {
	if args.Payload.Valid {
		t.Payload = []byte(args.Payload.String)
	}
	if args.ErrorMsg.Valid {
		t.Error = args.ErrorMsg.String
	}
	if args.NotBefore.Valid {
		t.NotBefore = &args.NotBefore.Time
	}
	if args.StartedAt.Valid {
		t.StartedAt = &args.StartedAt.Time
	}
	if args.CompletedAt.Valid {
		t.CompletedAt = &args.CompletedAt.Time
	}
}

// scanTaskFromRows scans a single task from sql.Rows (for use in loops).
func scanTaskFromRows(rows *sql.Rows, t *Task) error {
	args := &taskScanArgs{}
	if err := rows.Scan(taskScanTargets(t, args)...); err != nil {
		return err
	}
	applyTaskScanArgs(t, args)
	return nil
}

// taskSelectColumns is the standard column list for task SELECT queries.
const taskSelectColumns = `id, handler_name, payload, source, status,
	retry_count, error, not_before, created_at, started_at, completed_at, updated_at`
