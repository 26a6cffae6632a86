package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobrake/jobrake/errors"
)

// MaxOrphanedTasksToRecover limits how many orphaned tasks we'll attempt to
// recover on startup to prevent overwhelming the system after a crash
const MaxOrphanedTasksToRecover = 1000

// WorkerPool manages a pool of workers that process queued tasks
type WorkerPool struct {
	queue         *Queue
	registry      *Registry
	poolConfig    WorkerPoolConfig
	workers       int
	parentCtx     context.Context
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	activeWorkers int
	logger        *zap.SugaredLogger
	mu            sync.Mutex
}

// WorkerPoolConfig contains configuration for the worker pool
type WorkerPoolConfig struct {
	Workers      int           `json:"workers"`       // Number of concurrent workers
	PollInterval time.Duration `json:"poll_interval"` // How often to check for new tasks
}

// DefaultWorkerPoolConfig returns sensible defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:      2,
		PollInterval: 2 * time.Second,
	}
}

// NewWorkerPool creates a worker pool over the given database.
// Callers must register handlers on Registry() before calling Start().
// The parent context enables shutdown coordination: cancelling it causes
// workers to finish their current task and exit.
func NewWorkerPool(ctx context.Context, db *sql.DB, poolCfg WorkerPoolConfig, log *zap.SugaredLogger) *WorkerPool {
	workerCtx, cancel := context.WithCancel(ctx)

	if poolCfg.Workers < 1 {
		poolCfg.Workers = 1
	}
	if poolCfg.PollInterval <= 0 {
		poolCfg.PollInterval = DefaultWorkerPoolConfig().PollInterval
	}

	return &WorkerPool{
		queue:      NewQueue(db),
		registry:   NewRegistry(),
		poolConfig: poolCfg,
		workers:    poolCfg.Workers,
		parentCtx:  ctx,
		ctx:        workerCtx,
		cancel:     cancel,
		logger:     log.Named("task.worker"),
	}
}

// Start begins processing tasks with the worker pool.
// Tasks orphaned in "running" state by a previous crash are re-queued first.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	// If Stop() was called earlier, recreate the worker context before
	// spawning workers to avoid races.
	select {
	case <-wp.ctx.Done():
		wp.ctx, wp.cancel = context.WithCancel(wp.parentCtx)
		wp.logger.Debugw("Recreated worker context after previous shutdown")
	default:
	}
	wp.mu.Unlock()

	if err := wp.recoverOrphanedTasks(); err != nil {
		wp.logger.Warnw("Failed to recover orphaned tasks", "error", err)
		// Continue starting workers even if recovery fails
	}

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Infow("Worker pool started",
		"workers", wp.workers,
		"poll_interval", wp.poolConfig.PollInterval,
	)
}

// recoverOrphanedTasks finds tasks stuck in "running" state from an
// ungraceful shutdown (crash, kill -9) and re-queues them.
func (wp *WorkerPool) recoverOrphanedTasks() error {
	orphaned, err := wp.queue.store.ListRunning(MaxOrphanedTasksToRecover)
	if err != nil {
		return errors.Wrap(err, "failed to list running tasks")
	}

	if len(orphaned) == 0 {
		return nil
	}

	wp.logger.Infow("Found orphaned tasks from previous shutdown", "count", len(orphaned))

	recovered := 0
	for _, t := range orphaned {
		t.Status = StatusQueued
		t.Error = "" // Clear any stale error message
		if err := wp.queue.UpdateTask(t); err != nil {
			wp.logger.Warnw("Failed to recover orphaned task", "task_id", t.ID, "error", err)
			continue
		}
		recovered++
	}

	wp.logger.Infow("Recovered orphaned tasks", "recovered", recovered, "total", len(orphaned))
	return nil
}

// Stop gracefully stops the worker pool.
// Workers finish their in-flight task; a timeout bounds the wait so shutdown
// never blocks indefinitely.
func (wp *WorkerPool) Stop() {
	wp.cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	timeout := 30 * time.Second
	select {
	case <-done:
		wp.logger.Infow("Worker pool stopped - all workers exited cleanly")
	case <-time.After(timeout):
		wp.logger.Warnw("Worker pool stop timeout - workers may still be finishing", "timeout", timeout)
	}
}

// worker processes tasks from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	ticker := time.NewTicker(wp.poolConfig.PollInterval)
	defer ticker.Stop()

	// Error backoff state
	errorCount := 0
	const maxConsecutiveErrors = 5
	backoffDuration := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-wp.ctx.Done():
			return
		case <-ticker.C:
			if err := wp.processNextTask(); err != nil {
				select {
				case <-wp.ctx.Done():
					// Shutting down - exit silently
					return
				default:
				}
				if errors.Is(err, sql.ErrConnDone) {
					// Database closed during shutdown
					return
				}

				errorCount++
				wp.logger.Errorw("Worker error processing task",
					"worker_id", id,
					"error", err,
					"consecutive_errors", errorCount)

				// Exponential backoff after repeated consecutive errors
				if errorCount >= maxConsecutiveErrors {
					wp.logger.Warnw("Worker backing off due to consecutive errors",
						"worker_id", id,
						"backoff", backoffDuration,
						"consecutive_errors", errorCount)
					time.Sleep(backoffDuration)
					backoffDuration = min(backoffDuration*2, maxBackoff)
				}
			} else {
				if errorCount > 0 {
					wp.logger.Infow("Worker recovered from errors",
						"worker_id", id,
						"previous_error_count", errorCount)
				}
				errorCount = 0
				backoffDuration = time.Second
			}
		}
	}
}

// processNextTask gets the next task from the queue and executes it
func (wp *WorkerPool) processNextTask() error {
	select {
	case <-wp.ctx.Done():
		return nil // Graceful shutdown - don't pick up new tasks
	default:
	}

	t, err := wp.queue.Dequeue()
	if err != nil {
		return errors.Wrap(err, "failed to dequeue task")
	}
	if t == nil {
		return nil // No tasks available
	}

	wp.mu.Lock()
	wp.activeWorkers++
	wp.mu.Unlock()
	defer func() {
		wp.mu.Lock()
		wp.activeWorkers--
		wp.mu.Unlock()
	}()

	if err := wp.registry.Execute(wp.ctx, t); err != nil {
		select {
		case <-wp.ctx.Done():
			// Cancelled during execution - re-queue so the task is retried
			// after restart instead of being marked failed.
			wp.logger.Warnw("Task cancelled during execution, re-queuing", "task_id", t.ID)
			t.Status = StatusQueued
			if updateErr := wp.queue.UpdateTask(t); updateErr != nil {
				wp.logger.Errorw("Failed to re-queue cancelled task", "task_id", t.ID, "error", updateErr)
			}
			return nil
		default:
		}

		if errors.Is(err, ErrRetryScheduled) {
			// Handler already re-queued the task with an incremented
			// retry count; nothing more to record here.
			return nil
		}

		return wp.queue.FailTask(t.ID, err)
	}

	return wp.queue.CompleteTask(t.ID)
}

// GetQueue returns the task queue (useful for enqueuing tasks)
func (wp *WorkerPool) GetQueue() *Queue {
	return wp.queue
}

// Registry returns the handler registry for registering task handlers.
// Register handlers before calling Start():
//
//	pool := task.NewWorkerPool(ctx, db, poolCfg, log)
//	scrape.RegisterHandlers(pool.Registry(), deps)
//	pool.Start()
func (wp *WorkerPool) Registry() *Registry {
	return wp.registry
}

// Workers returns the number of concurrent workers configured for this pool
func (wp *WorkerPool) Workers() int {
	return wp.workers
}
