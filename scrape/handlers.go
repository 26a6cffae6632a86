package scrape

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/jobrake/jobrake/errors"
	"github.com/jobrake/jobrake/ingest"
	"github.com/jobrake/jobrake/logger"
	"github.com/jobrake/jobrake/normalize"
	"github.com/jobrake/jobrake/publish"
	"github.com/jobrake/jobrake/task"
)

// jobHandler executes a scrape job: it validates the boards and fans out
// one board task per configured board.
type jobHandler struct {
	o *Orchestrator
}

func (h *jobHandler) Name() string { return HandlerScrapeJob }

func (h *jobHandler) Execute(ctx context.Context, t *task.Task) error {
	var payload JobPayload
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		return errors.Wrap(err, "invalid scrape job payload")
	}

	o := h.o
	log := o.log.With(logger.FieldJobID, payload.ScrapeJobID, logger.FieldTaskID, t.ID)

	j, err := o.jobs.Get(payload.ScrapeJobID)
	if err != nil {
		if errors.IsNotFound(err) {
			// Integrity error: nothing to record the failure on
			return err
		}
		return task.Retryable(o.queue, t, "load scrape job", err, log)
	}

	if j.Status.IsTerminal() {
		log.Debugw("Job already finished, skipping redelivered task", "status", j.Status)
		return nil
	}
	if j.CancelRequested {
		o.cancelUnstarted(j)
		return nil
	}

	// Board records must exist at job start; a missing board is a
	// programming/integrity error that fails the whole job.
	for _, boardID := range j.BoardIDs {
		if _, err := o.boards.Get(boardID); err != nil {
			j.Fail(errors.Wrapf(err, "board %s missing at job start", boardID))
			if updateErr := o.jobs.Update(j); updateErr != nil {
				return updateErr
			}
			o.notifyHeartbeat()
			return nil
		}
	}

	j.Start()
	if err := o.jobs.Update(j); err != nil {
		return task.Retryable(o.queue, t, "mark job running", err, log)
	}
	o.notifyHeartbeat()

	for _, boardID := range j.BoardIDs {
		boardPayload, err := json.Marshal(BoardPayload{ScrapeJobID: j.ID, BoardID: boardID})
		if err != nil {
			return errors.Wrap(err, "failed to marshal board payload")
		}
		tk, err := task.New(HandlerScrapeBoard, j.ID, boardPayload)
		if err != nil {
			return err
		}
		if err := o.queue.Enqueue(tk); err != nil {
			return err
		}
	}

	log.Infow("Board tasks dispatched", "boards", len(j.BoardIDs))
	return nil
}

// boardHandler executes one board's scrape run: fetch, dedup, persist raw
// items, and fan out per-item normalization tasks. A failing run records
// its error and never aborts sibling runs.
type boardHandler struct {
	o *Orchestrator
}

func (h *boardHandler) Name() string { return HandlerScrapeBoard }

func (h *boardHandler) Execute(ctx context.Context, t *task.Task) error {
	var payload BoardPayload
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		return errors.Wrap(err, "invalid scrape board payload")
	}

	o := h.o
	log := o.log.With(
		logger.FieldJobID, payload.ScrapeJobID,
		logger.FieldBoardID, payload.BoardID,
		logger.FieldTaskID, t.ID,
	)

	j, err := o.jobs.Get(payload.ScrapeJobID)
	if err != nil {
		if errors.IsNotFound(err) {
			return err
		}
		return task.Retryable(o.queue, t, "load scrape job", err, log)
	}

	if j.CancelRequested {
		log.Infow("Skipping board run, job cancelled")
		o.cancelUnstarted(j)
		return nil
	}

	// Redelivered task: reuse the existing run instead of violating the
	// one-run-per-board constraint.
	run, err := o.runs.GetByJobAndBoard(j.ID, payload.BoardID)
	if err != nil {
		return task.Retryable(o.queue, t, "load scrape run", err, log)
	}
	if run != nil && run.Status.IsTerminal() {
		o.maybeFinalize(j.ID)
		return nil
	}
	if run == nil {
		run = NewRun(j.ID, payload.BoardID)
		if err := o.runs.Create(run); err != nil {
			if !errors.IsConflict(err) {
				return task.Retryable(o.queue, t, "create scrape run", err, log)
			}
			// Lost a race with a concurrent delivery of this task
			run, err = o.runs.GetByJobAndBoard(j.ID, payload.BoardID)
			if err != nil || run == nil {
				return task.Retryable(o.queue, t, "load scrape run", err, log)
			}
			if run.Status.IsTerminal() {
				o.maybeFinalize(j.ID)
				return nil
			}
		}
	}
	log = log.With(logger.FieldRunID, run.ID)

	b, err := o.boards.Get(payload.BoardID)
	if err != nil {
		h.failRun(run, err, log)
		return nil
	}

	adapter, err := ingest.ForBoard(b)
	if err != nil {
		h.failRun(run, err, log)
		return nil
	}

	result, fetchErr := adapter.Fetch(ctx, b)
	if result != nil {
		run.PagesScraped = result.PagesFetched
		run.ItemsFound = result.ItemsFound
		run.ResponseBytes = result.ResponseBytes
		if result.HTTPStatus != 0 {
			status := result.HTTPStatus
			run.HTTPStatus = &status
		}
	}
	if fetchErr != nil {
		h.failRun(run, fetchErr, log)
		return nil
	}

	duplicates := 0
	for _, rec := range result.Records {
		raw, err := ingest.NewRawJob(run.ID, b.ID, rec)
		if err != nil {
			log.Warnw("Failed to build raw job", "title", rec.Title, "error", err)
			continue
		}
		if err := o.raws.Create(raw); err != nil {
			if errors.IsConflict(err) {
				// Already seen this content for this board
				duplicates++
				continue
			}
			log.Warnw("Failed to persist raw job", "title", rec.Title, "error", err)
			continue
		}
		run.ItemsProcessed++

		normalizePayload, err := json.Marshal(NormalizePayload{RawJobID: raw.ID, ScrapeRunID: run.ID})
		if err != nil {
			log.Warnw("Failed to marshal normalize payload", logger.FieldRawID, raw.ID, "error", err)
			continue
		}
		tk, err := task.New(HandlerNormalize, raw.ID, normalizePayload)
		if err != nil {
			continue
		}
		if err := o.queue.Enqueue(tk); err != nil {
			log.Warnw("Failed to enqueue normalize task", logger.FieldRawID, raw.ID, "error", err)
		}
	}

	run.Complete()
	if err := o.runs.Update(run); err != nil {
		log.Warnw("Failed to complete run", "error", err)
	}
	if err := o.boards.RecordScrapeResult(b.ID, true); err != nil {
		log.Warnw("Failed to record board scrape result", "error", err)
	}
	if err := o.jobs.AddItemsFound(j.ID, result.ItemsFound); err != nil {
		log.Warnw("Failed to aggregate items found", "error", err)
	}

	log.Infow("Board run completed",
		"pages", run.PagesScraped,
		"items_found", run.ItemsFound,
		"items_persisted", run.ItemsProcessed,
		"duplicates", duplicates,
	)

	o.maybeFinalize(j.ID)
	return nil
}

// failRun records a run failure and the board's failed-scrape counter, then
// checks whether the parent job is done. The task itself completes: the
// failure lives on the run, not the queue.
func (h *boardHandler) failRun(run *Run, cause error, log *zap.SugaredLogger) {
	o := h.o
	run.Fail(cause)
	if err := o.runs.Update(run); err != nil {
		log.Warnw("Failed to record run failure", "error", err)
	}
	if err := o.boards.RecordScrapeResult(run.BoardID, false); err != nil && !errors.IsNotFound(err) {
		log.Warnw("Failed to record board scrape result", "error", err)
	}
	log.Infow("Board run failed", "error", cause.Error())
	o.maybeFinalize(run.ScrapeJobID)
}

// normalizeHandler processes one raw job end to end: normalize, score, and
// publish. Rejection and low quality are recorded outcomes, not failures.
type normalizeHandler struct {
	o *Orchestrator
}

func (h *normalizeHandler) Name() string { return HandlerNormalize }

func (h *normalizeHandler) Execute(ctx context.Context, t *task.Task) error {
	var payload NormalizePayload
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		return errors.Wrap(err, "invalid normalize payload")
	}

	o := h.o
	log := o.log.With(logger.FieldRawID, payload.RawJobID, logger.FieldTaskID, t.ID)

	raw, err := o.raws.Get(payload.RawJobID)
	if err != nil {
		if errors.IsNotFound(err) {
			return err
		}
		return task.Retryable(o.queue, t, "load raw job", err, log)
	}

	if raw.Status != ingest.RawStatusPendingNormalization {
		log.Debugw("Raw job already processed, skipping", "status", raw.Status)
		return nil
	}

	nj, err := o.normalizer.Normalize(raw)
	if err != nil {
		if reject, ok := normalize.IsReject(err); ok {
			if updateErr := o.raws.UpdateStatus(raw.ID, ingest.RawStatusRejected, reject.Reason); updateErr != nil {
				return updateErr
			}
			log.Infow("Raw job rejected", "reason", reject.Reason)
			return nil
		}
		return h.failNormalization(t, raw, err, log)
	}

	nj.ConfidenceScore = normalize.Score(nj)
	if err := o.normalized.Create(nj); err != nil {
		return h.failNormalization(t, raw, err, log)
	}
	if err := o.raws.MarkNormalized(raw.ID, nj.ID); err != nil {
		return err
	}

	b, err := o.boards.Get(raw.BoardID)
	if err != nil {
		return err
	}

	result, err := o.publisher.Publish(nj, b.QualityThreshold)
	if err != nil {
		return task.Retryable(o.queue, t, "publish normalized job", err, log)
	}

	switch result.Outcome {
	case publish.OutcomePublished:
		if err := o.raws.SetJobPost(raw.ID, result.Post.ID); err != nil {
			return err
		}
		if err := o.runs.IncrementItemsCreated(raw.ScrapeRunID); err != nil {
			log.Warnw("Failed to increment items created", "error", err)
		}
	case publish.OutcomeDuplicate:
		if err := o.raws.SetJobPost(raw.ID, result.Post.ID); err != nil {
			return err
		}
		if err := o.raws.UpdateStatus(raw.ID, ingest.RawStatusDuplicate, "post already published for "+nj.SourceURL); err != nil {
			return err
		}
	}

	log.Infow("Raw job processed",
		"outcome", result.Outcome,
		"score", nj.ConfidenceScore,
	)
	return nil
}

// failNormalization retries transient failures; once retries are exhausted
// the failure is surfaced on the raw job.
func (h *normalizeHandler) failNormalization(t *task.Task, raw *ingest.RawJob, cause error, log *zap.SugaredLogger) error {
	retryErr := task.Retryable(h.o.queue, t, "normalize raw job", cause, log)
	if errors.Is(retryErr, task.ErrRetryScheduled) {
		return retryErr
	}

	if err := h.o.raws.UpdateStatus(raw.ID, ingest.RawStatusNormalizationFailed, cause.Error()); err != nil {
		log.Warnw("Failed to record normalization failure", "error", err)
	}
	return retryErr
}
