package schedule

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobrake/jobrake/logger"
	"github.com/jobrake/jobrake/scrape"
)

// Enqueuer dispatches a scrape job over a board set. Satisfied by
// scrape.Orchestrator.
type Enqueuer interface {
	EnqueueJob(boardIDs []string, priority int, scheduledScrapeID *string) (*scrape.Job, error)
}

// DefaultScanInterval is how often the ticker scans for due schedules
const DefaultScanInterval = 30 * time.Second

// Ticker periodically scans for due schedules and enqueues their scrape
// jobs. One ticker per process; schedule state lives in the database so a
// restart picks up where the previous run left off.
type Ticker struct {
	store    *Store
	jobs     *scrape.JobStore
	enqueuer Enqueuer
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zap.SugaredLogger
}

// NewTicker creates a schedule ticker over the given database
func NewTicker(db *sql.DB, enqueuer Enqueuer, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Ticker{
		store:    NewStore(db),
		jobs:     scrape.NewJobStore(db),
		enqueuer: enqueuer,
		interval: interval,
		log:      logger.ComponentLogger("schedule"),
	}
}

// Store returns the underlying schedule store
func (t *Ticker) Store() *Store {
	return t.store
}

// Start begins the scan loop
func (t *Ticker) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		t.log.Infow("Schedule ticker started", "scan_interval", t.interval)
		for {
			select {
			case <-ctx.Done():
				t.log.Infow("Schedule ticker stopped")
				return
			case <-ticker.C:
				t.Tick(time.Now())
			}
		}
	}()
}

// Stop halts the scan loop and waits for an in-flight scan to finish
func (t *Ticker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

// Tick runs one scan: every due schedule with no active job gets a new
// scrape job enqueued. A schedule whose previous job is still pending or
// running is advanced without enqueueing, so missed intervals never stack.
func (t *Ticker) Tick(now time.Time) {
	due, err := t.store.ListDue(now)
	if err != nil {
		t.log.Warnw("Failed to list due schedules", "error", err)
		return
	}

	for _, sc := range due {
		log := t.log.With("schedule_id", sc.ID, "name", sc.Name)

		active, err := t.jobs.CountActiveForSchedule(sc.ID)
		if err != nil {
			log.Warnw("Failed to check for active jobs", "error", err)
			continue
		}
		if active > 0 {
			log.Debugw("Skipping schedule, previous job still active", "active_jobs", active)
			sc.MarkRun(now)
			if err := t.store.Update(sc); err != nil {
				log.Warnw("Failed to advance schedule", "error", err)
			}
			continue
		}

		j, err := t.enqueuer.EnqueueJob(sc.BoardIDs, 0, &sc.ID)
		if err != nil {
			log.Warnw("Failed to enqueue scheduled scrape", "error", err)
			continue
		}

		sc.MarkRun(now)
		if err := t.store.Update(sc); err != nil {
			log.Warnw("Failed to advance schedule", "error", err)
			continue
		}

		log.Infow("Scheduled scrape enqueued", logger.FieldJobID, j.ID, "boards", len(sc.BoardIDs))
	}
}
