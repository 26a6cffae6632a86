// Package server exposes the pipeline over HTTP: job dispatch and
// cancellation, board and schedule management, engine health, and read-only
// audit listings over the ingestion stages.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jobrake/jobrake/board"
	"github.com/jobrake/jobrake/engine"
	"github.com/jobrake/jobrake/ingest"
	"github.com/jobrake/jobrake/logger"
	"github.com/jobrake/jobrake/normalize"
	"github.com/jobrake/jobrake/publish"
	"github.com/jobrake/jobrake/schedule"
	"github.com/jobrake/jobrake/scrape"
	"github.com/jobrake/jobrake/task"
)

// Server is the pipeline's HTTP boundary
type Server struct {
	orch      *scrape.Orchestrator
	tracker   *engine.Tracker
	boards    *board.Store
	schedules *schedule.Store
	raws      *ingest.RawStore
	norms     *normalize.Store
	posts     *publish.Store
	queue     *task.Queue

	httpServer *http.Server
	log        *zap.SugaredLogger
}

// NewServer wires the HTTP boundary over the given database and pipeline
func NewServer(db *sql.DB, orch *scrape.Orchestrator, tracker *engine.Tracker, queue *task.Queue, addr string) *Server {
	s := &Server{
		orch:      orch,
		tracker:   tracker,
		boards:    board.NewStore(db),
		schedules: schedule.NewStore(db),
		raws:      ingest.NewRawStore(db),
		norms:     normalize.NewStore(db),
		posts:     publish.NewStore(db),
		queue:     queue,
		log:       logger.ComponentLogger("server"),
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/engine", s.handleEngineState)

	mux.HandleFunc("POST /api/scrape-jobs", s.handleCreateScrapeJob)
	mux.HandleFunc("GET /api/scrape-jobs", s.handleListScrapeJobs)
	mux.HandleFunc("GET /api/scrape-jobs/{id}", s.handleGetScrapeJob)
	mux.HandleFunc("POST /api/scrape-jobs/{id}/cancel", s.handleCancelScrapeJob)

	mux.HandleFunc("GET /api/boards", s.handleListBoards)
	mux.HandleFunc("POST /api/boards", s.handleCreateBoard)
	mux.HandleFunc("GET /api/boards/{id}", s.handleGetBoard)

	mux.HandleFunc("GET /api/schedules", s.handleListSchedules)
	mux.HandleFunc("POST /api/schedules", s.handleCreateSchedule)
	mux.HandleFunc("GET /api/schedules/{id}", s.handleGetSchedule)
	mux.HandleFunc("PATCH /api/schedules/{id}", s.handleUpdateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", s.handleDeleteSchedule)

	mux.HandleFunc("GET /api/raw-jobs", s.handleListRawJobs)
	mux.HandleFunc("GET /api/normalized-jobs", s.handleListNormalizedJobs)
	mux.HandleFunc("GET /api/posts", s.handleListPosts)
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)

	return mux
}

// Start begins serving. Blocks until the listener closes.
func (s *Server) Start() error {
	s.log.Infow("HTTP server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes the listener
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infow("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
