package server

import (
	"net/http"
	"strconv"

	"github.com/jobrake/jobrake/board"
	"github.com/jobrake/jobrake/ingest"
	"github.com/jobrake/jobrake/logger"
	"github.com/jobrake/jobrake/normalize"
	"github.com/jobrake/jobrake/publish"
	"github.com/jobrake/jobrake/schedule"
	"github.com/jobrake/jobrake/scrape"
	"github.com/jobrake/jobrake/task"
)

const defaultListLimit = 100

func listLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return defaultListLimit
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEngineState(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.State()
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CreateScrapeJobRequest is the POST /api/scrape-jobs body
type CreateScrapeJobRequest struct {
	BoardIDs []string `json:"board_ids"`
	Priority int      `json:"priority"`
}

func (s *Server) handleCreateScrapeJob(w http.ResponseWriter, r *http.Request) {
	var req CreateScrapeJobRequest
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.BoardIDs) == 0 {
		writeError(w, http.StatusBadRequest, "board_ids is required")
		return
	}

	j, err := s.orch.EnqueueJob(req.BoardIDs, req.Priority, nil)
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}

	s.log.Infow("Scrape job created via API", logger.FieldJobID, j.ID, "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleListScrapeJobs(w http.ResponseWriter, r *http.Request) {
	var status *scrape.JobStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := scrape.JobStatus(v)
		status = &st
	}

	jobs, err := s.orch.Jobs().List(status, listLimit(r))
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}

// ScrapeJobResponse is a job together with its per-board runs
type ScrapeJobResponse struct {
	Job  *scrape.Job   `json:"job"`
	Runs []*scrape.Run `json:"runs"`
}

func (s *Server) handleGetScrapeJob(w http.ResponseWriter, r *http.Request) {
	j, runs, err := s.orch.JobWithRuns(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ScrapeJobResponse{Job: j, Runs: runs})
}

func (s *Server) handleCancelScrapeJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.orch.CancelJob(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	boards, err := s.boards.List(activeOnly)
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"boards": boards, "count": len(boards)})
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var b board.Board
	if !readJSON(w, r, &b) {
		return
	}

	if err := s.boards.Create(&b); err != nil {
		writeStoreError(w, s.log, err)
		return
	}

	s.log.Infow("Board created via API", logger.FieldBoardID, b.ID, "kind", b.Kind)
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.boards.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.schedules.List()
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schedules": schedules, "count": len(schedules)})
}

// CreateScheduleRequest is the POST /api/schedules body
type CreateScheduleRequest struct {
	Name            string   `json:"name"`
	BoardIDs        []string `json:"board_ids"`
	IntervalSeconds int      `json:"interval_seconds"`
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if !readJSON(w, r, &req) {
		return
	}

	for _, id := range req.BoardIDs {
		if _, err := s.boards.Get(id); err != nil {
			writeStoreError(w, s.log, err)
			return
		}
	}

	sc, err := schedule.New(req.Name, req.BoardIDs, req.IntervalSeconds)
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	if err := s.schedules.Create(sc); err != nil {
		writeStoreError(w, s.log, err)
		return
	}

	s.log.Infow("Schedule created via API", "schedule_id", sc.ID, "interval_seconds", sc.IntervalSeconds)
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	sc, err := s.schedules.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// UpdateScheduleRequest is the PATCH /api/schedules/{id} body. Only provided
// fields change.
type UpdateScheduleRequest struct {
	State           *schedule.State `json:"state,omitempty"`
	IntervalSeconds *int            `json:"interval_seconds,omitempty"`
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateScheduleRequest
	if !readJSON(w, r, &req) {
		return
	}

	sc, err := s.schedules.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}

	if req.State != nil {
		if *req.State != schedule.StateActive && *req.State != schedule.StatePaused {
			writeError(w, http.StatusBadRequest, "state must be active or paused")
			return
		}
		sc.State = *req.State
	}
	if req.IntervalSeconds != nil {
		if *req.IntervalSeconds < 60 {
			writeError(w, http.StatusBadRequest, "interval must be at least 60 seconds")
			return
		}
		sc.IntervalSeconds = *req.IntervalSeconds
	}

	if err := s.schedules.Update(sc); err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.schedules.Delete(r.PathValue("id")); err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRawJobs(w http.ResponseWriter, r *http.Request) {
	var raws []*ingest.RawJob
	var err error

	if runID := r.URL.Query().Get("run"); runID != "" {
		raws, err = s.raws.ListByRun(runID)
	} else if status := r.URL.Query().Get("status"); status != "" {
		raws, err = s.raws.ListByStatus(ingest.RawStatus(status), listLimit(r))
	} else {
		writeError(w, http.StatusBadRequest, "run or status query parameter is required")
		return
	}
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"raw_jobs": raws, "count": len(raws)})
}

func (s *Server) handleListNormalizedJobs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(normalize.StatusPendingReview)
	}

	jobs, err := s.norms.ListByStatus(normalize.Status(status), listLimit(r))
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"normalized_jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	var status *publish.PostStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := publish.PostStatus(v)
		status = &st
	}

	posts, err := s.posts.List(status, listLimit(r))
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts, "count": len(posts)})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var status *task.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := task.Status(v)
		status = &st
	}

	tasks, err := s.queue.ListTasks(status, listLimit(r))
	if err != nil {
		writeStoreError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks, "count": len(tasks)})
}
