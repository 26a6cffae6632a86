package scrape

import (
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/jobrake/jobrake/board"
	"github.com/jobrake/jobrake/errors"
	"github.com/jobrake/jobrake/ingest"
	"github.com/jobrake/jobrake/logger"
	"github.com/jobrake/jobrake/normalize"
	"github.com/jobrake/jobrake/publish"
	"github.com/jobrake/jobrake/task"
)

// Handler names for the pipeline's task types
const (
	HandlerScrapeJob   = "scrape.job"
	HandlerScrapeBoard = "scrape.board"
	HandlerNormalize   = "ingest.normalize"
)

// JobPayload triggers execution of one scrape job
type JobPayload struct {
	ScrapeJobID string `json:"scrape_job_id"`
}

// BoardPayload triggers one board's run within a scrape job
type BoardPayload struct {
	ScrapeJobID string `json:"scrape_job_id"`
	BoardID     string `json:"board_id"`
}

// NormalizePayload triggers normalization of one persisted raw job
type NormalizePayload struct {
	RawJobID    string `json:"raw_job_id"`
	ScrapeRunID string `json:"scrape_run_id"`
}

// Orchestrator drives the scrape pipeline's state machine. Each stage runs
// as an independent queue task; the orchestrator owns job and run state and
// fans work out through the queue.
type Orchestrator struct {
	queue      *task.Queue
	jobs       *JobStore
	runs       *RunStore
	boards     *board.Store
	raws       *ingest.RawStore
	normalizer *normalize.Normalizer
	normalized *normalize.Store
	publisher  *publish.Publisher
	heartbeat  func()
	log        *zap.SugaredLogger
}

// NewOrchestrator creates an orchestrator over the given database and queue
func NewOrchestrator(db *sql.DB, queue *task.Queue) *Orchestrator {
	return &Orchestrator{
		queue:      queue,
		jobs:       NewJobStore(db),
		runs:       NewRunStore(db),
		boards:     board.NewStore(db),
		raws:       ingest.NewRawStore(db),
		normalizer: normalize.NewNormalizer(),
		normalized: normalize.NewStore(db),
		publisher:  publish.NewPublisher(db),
		log:        logger.ComponentLogger("scrape"),
	}
}

// SetHeartbeat installs a callback invoked after job state transitions so
// the engine state stays fresh without polling.
func (o *Orchestrator) SetHeartbeat(fn func()) {
	o.heartbeat = fn
}

// RegisterHandlers registers the pipeline's task handlers on the registry
func (o *Orchestrator) RegisterHandlers(registry *task.Registry) {
	registry.Register(&jobHandler{o: o})
	registry.Register(&boardHandler{o: o})
	registry.Register(&normalizeHandler{o: o})
}

// Jobs returns the scrape job store
func (o *Orchestrator) Jobs() *JobStore { return o.jobs }

// Runs returns the scrape run store
func (o *Orchestrator) Runs() *RunStore { return o.runs }

// EnqueueJob creates a pending scrape job over the boards and dispatches
// its execution task. Every board must exist; a missing board fails the
// enqueue, not a later task.
func (o *Orchestrator) EnqueueJob(boardIDs []string, priority int, scheduledScrapeID *string) (*Job, error) {
	for _, id := range boardIDs {
		if _, err := o.boards.Get(id); err != nil {
			return nil, err
		}
	}

	j, err := NewJob(boardIDs, priority, scheduledScrapeID)
	if err != nil {
		return nil, err
	}
	if err := o.jobs.Create(j); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(JobPayload{ScrapeJobID: j.ID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal job payload")
	}
	tk, err := task.New(HandlerScrapeJob, j.ID, payload)
	if err != nil {
		return nil, err
	}
	if err := o.queue.Enqueue(tk); err != nil {
		return nil, err
	}

	o.log.Infow("Scrape job enqueued",
		logger.FieldJobID, j.ID,
		"boards", len(boardIDs),
		"priority", priority,
	)
	o.notifyHeartbeat()

	return j, nil
}

// CancelJob records a cancellation request. Pending jobs are cancelled
// immediately together with their queued task; running jobs finish their
// in-flight work and stop dispatching new board tasks.
func (o *Orchestrator) CancelJob(id string) (*Job, error) {
	j, err := o.jobs.Get(id)
	if err != nil {
		return nil, err
	}
	if j.Status.IsTerminal() {
		return nil, errors.Newf("scrape job %s is already %s", id, j.Status)
	}

	if err := o.jobs.RequestCancel(id); err != nil {
		return nil, err
	}
	j.CancelRequested = true

	if j.Status == JobStatusPending {
		if tk, findErr := o.queue.FindActiveBySource(id, HandlerScrapeJob); findErr == nil && tk != nil && tk.Status == task.StatusQueued {
			if cancelErr := o.queue.CancelTask(tk.ID, "scrape job cancelled"); cancelErr != nil {
				o.log.Warnw("Failed to cancel queued task", logger.FieldJobID, id, "error", cancelErr)
			}
		}
		j.Cancel()
		if err := o.jobs.Update(j); err != nil {
			return nil, err
		}
	}

	o.log.Infow("Scrape job cancellation requested", logger.FieldJobID, id, "status", j.Status)
	o.notifyHeartbeat()

	return j, nil
}

// JobWithRuns returns a job together with its per-board runs
func (o *Orchestrator) JobWithRuns(id string) (*Job, []*Run, error) {
	j, err := o.jobs.Get(id)
	if err != nil {
		return nil, nil, err
	}
	runs, err := o.runs.ListByJob(id)
	if err != nil {
		return nil, nil, err
	}
	return j, runs, nil
}

// maybeFinalize completes the parent job once every board's run is
// terminal. Concurrent finishers may both pass the count check; both write
// the same terminal state, so last-writer-wins is safe here.
func (o *Orchestrator) maybeFinalize(jobID string) {
	j, err := o.jobs.Get(jobID)
	if err != nil {
		o.log.Warnw("Failed to load job for finalization", logger.FieldJobID, jobID, "error", err)
		return
	}
	if j.Status.IsTerminal() {
		return
	}

	terminal, err := o.runs.CountTerminalByJob(jobID)
	if err != nil {
		o.log.Warnw("Failed to count terminal runs", logger.FieldJobID, jobID, "error", err)
		return
	}
	if terminal < len(j.BoardIDs) {
		return
	}

	if j.CancelRequested {
		j.Cancel()
	} else {
		j.Complete()
	}
	if err := o.jobs.Update(j); err != nil {
		o.log.Warnw("Failed to finalize job", logger.FieldJobID, jobID, "error", err)
		return
	}

	o.log.Infow("Scrape job finished",
		logger.FieldJobID, jobID,
		"status", j.Status,
		"items_found", j.ItemsFound,
		"items_created", j.ItemsCreated,
	)
	o.notifyHeartbeat()
}

// cancelUnstarted marks a job cancelled when a board task observes the
// cancellation flag before its run started.
func (o *Orchestrator) cancelUnstarted(j *Job) {
	if j.Status.IsTerminal() {
		return
	}
	j.Cancel()
	if err := o.jobs.Update(j); err != nil {
		o.log.Warnw("Failed to mark job cancelled", logger.FieldJobID, j.ID, "error", err)
		return
	}
	o.notifyHeartbeat()
}

func (o *Orchestrator) notifyHeartbeat() {
	if o.heartbeat != nil {
		o.heartbeat()
	}
}
