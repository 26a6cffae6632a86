// Package schedule runs interval-based scrape schedules. A ticker scans for
// due schedules and enqueues scrape jobs through the orchestrator; a
// schedule never stacks a second job while its previous one is still active.
package schedule

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobrake/jobrake/errors"
)

// State is a schedule's activation state
type State string

const (
	StateActive State = "active"
	StatePaused State = "paused"
)

// Schedule enqueues a scrape job over its board set every interval
type Schedule struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	BoardIDs        []string   `json:"board_ids"`
	IntervalSeconds int        `json:"interval_seconds"`
	State           State      `json:"state"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	NextRunAt       *time.Time `json:"next_run_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func newScheduleID() string {
	return "SS_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// New creates an active schedule, due after one full interval
func New(name string, boardIDs []string, intervalSeconds int) (*Schedule, error) {
	if name == "" {
		return nil, errors.NewInvalidConfig("schedule name is required")
	}
	if len(boardIDs) == 0 {
		return nil, errors.NewInvalidConfig("schedule requires at least one board")
	}
	if intervalSeconds < 60 {
		return nil, errors.NewInvalidConfig("schedule interval must be at least 60 seconds, got %d", intervalSeconds)
	}

	now := time.Now()
	next := now.Add(time.Duration(intervalSeconds) * time.Second)
	return &Schedule{
		ID:              newScheduleID(),
		Name:            name,
		BoardIDs:        boardIDs,
		IntervalSeconds: intervalSeconds,
		State:           StateActive,
		NextRunAt:       &next,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Interval returns the schedule's period as a duration
func (s *Schedule) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Due reports whether the schedule should run at the given time
func (s *Schedule) Due(now time.Time) bool {
	return s.State == StateActive && s.NextRunAt != nil && !s.NextRunAt.After(now)
}

// MarkRun records an execution and advances the next due time
func (s *Schedule) MarkRun(now time.Time) {
	next := now.Add(s.Interval())
	s.LastRunAt = &now
	s.NextRunAt = &next
	s.UpdatedAt = now
}
