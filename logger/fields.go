package logger

import "go.uber.org/zap"

// Standard field names for consistent structured logging across jobrake.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldTaskID  = "task_id"
	FieldJobID   = "job_id"
	FieldRunID   = "run_id"
	FieldBoardID = "board_id"
	FieldRawID   = "raw_job_id"
	FieldPostID  = "post_id"

	// Components
	FieldComponent = "component"
	FieldHandler   = "handler"
	FieldWorkerID  = "worker_id"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldSourceURL = "source_url"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount = "count"
	FieldPages = "pages"
	FieldFound = "items_found"

	// Status
	FieldStatus = "status"
	FieldState  = "state"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type WorkerPool struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewWorkerPool() *WorkerPool {
//	    return &WorkerPool{logger: logger.ComponentLogger("task.worker")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context fields.
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
