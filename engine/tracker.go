package engine

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobrake/jobrake/ingest"
	"github.com/jobrake/jobrake/logger"
	"github.com/jobrake/jobrake/scrape"
)

// successRateWindow is how many finished jobs feed the rolling success rate
const successRateWindow = 50

// DefaultHeartbeatInterval is the periodic heartbeat cadence. Job
// transitions also beat immediately, so the interval only bounds staleness
// while the pipeline is quiet.
const DefaultHeartbeatInterval = 30 * time.Second

// Tracker recomputes and persists the engine state row. Heartbeat is
// idempotent and safe to call from concurrent workers; each call rewrites
// the whole row from current counts.
type Tracker struct {
	store *StateStore
	jobs  *scrape.JobStore
	raws  *ingest.RawStore

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zap.SugaredLogger
}

// NewTracker creates an engine state tracker over the given database
func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{
		store: NewStateStore(db),
		jobs:  scrape.NewJobStore(db),
		raws:  ingest.NewRawStore(db),
		log:   logger.ComponentLogger("engine"),
	}
}

// Store returns the underlying state store
func (t *Tracker) Store() *StateStore {
	return t.store
}

// State returns the last persisted engine state
func (t *Tracker) State() (*State, error) {
	return t.store.Get()
}

// Heartbeat recomputes the engine state from current job and backlog counts
// and persists it. Errors are logged, not returned: a failed heartbeat never
// disturbs the pipeline work that triggered it.
func (t *Tracker) Heartbeat() {
	st, err := t.compute(time.Now())
	if err != nil {
		t.log.Warnw("Failed to compute engine state", "error", err)
		return
	}
	if err := t.store.Put(st); err != nil {
		t.log.Warnw("Failed to persist engine state", "error", err)
		return
	}

	t.log.Debugw("Heartbeat",
		"status", st.Status,
		"active_jobs", st.ActiveJobs,
		"queued_jobs", st.QueuedJobs,
		"success_rate", st.SuccessRate,
	)
}

// Start begins periodic heartbeats
func (t *Tracker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		t.Heartbeat()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Heartbeat()
			}
		}
	}()
}

// Stop halts periodic heartbeats
func (t *Tracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

func (t *Tracker) compute(now time.Time) (*State, error) {
	active, err := t.jobs.CountByStatus(scrape.JobStatusRunning)
	if err != nil {
		return nil, err
	}
	queued, err := t.jobs.CountByStatus(scrape.JobStatusPending)
	if err != nil {
		return nil, err
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	processedToday, err := t.jobs.CountCompletedSince(midnight)
	if err != nil {
		return nil, err
	}

	backlog, err := t.raws.CountByStatus(ingest.RawStatusPendingNormalization)
	if err != nil {
		return nil, err
	}

	rate, err := t.successRate()
	if err != nil {
		return nil, err
	}

	status := StatusIdle
	switch {
	case active > 0:
		status = StatusRunning
	case queued > 0:
		status = StatusPending
	}

	return &State{
		Status:               status,
		ActiveJobs:           active,
		QueuedJobs:           queued,
		JobsProcessedToday:   processedToday,
		PendingNormalization: backlog,
		SuccessRate:          rate,
		LastHeartbeatAt:      now,
	}, nil
}

// successRate is the completed fraction of the last finished jobs.
// Cancellations are deliberate, so they count toward neither side.
func (t *Tracker) successRate() (float64, error) {
	finished, err := t.jobs.ListRecentFinished(successRateWindow)
	if err != nil {
		return 0, err
	}

	completed, counted := 0, 0
	for _, j := range finished {
		switch j.Status {
		case scrape.JobStatusCompleted:
			completed++
			counted++
		case scrape.JobStatusFailed:
			counted++
		}
	}
	if counted == 0 {
		return 0, nil
	}
	return float64(completed) / float64(counted), nil
}
