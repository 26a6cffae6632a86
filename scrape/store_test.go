package scrape

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobrake/jobrake/board"
	"github.com/jobrake/jobrake/errors"
	jobraketest "github.com/jobrake/jobrake/internal/testing"
)

func seedBoard(t *testing.T, db *sql.DB) *board.Board {
	t.Helper()
	b := &board.Board{
		Name: "Store Test Board",
		Kind: board.KindRSS,
		SourceConfig: board.SourceConfig{
			RSS: &board.RSSConfig{FeedURL: "https://jobs.example.com/feed.xml"},
		},
		QualityThreshold: 0.75,
		IsActive:         true,
	}
	require.NoError(t, board.NewStore(db).Create(b))
	return b
}

func mustNewJob(t *testing.T, boardIDs ...string) *Job {
	t.Helper()
	j, err := NewJob(boardIDs, 0, nil)
	require.NoError(t, err)
	return j
}

func TestJobStoreCreateAndGet(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	b := seedBoard(t, db)
	store := NewJobStore(db)

	scheduledID := "SS_abc"
	j, err := NewJob([]string{b.ID}, 5, &scheduledID)
	require.NoError(t, err)
	require.NoError(t, store.Create(j))

	got, err := store.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, got.Status)
	assert.Equal(t, []string{b.ID}, got.BoardIDs)
	assert.Equal(t, 5, got.Priority)
	require.NotNil(t, got.ScheduledScrapeID)
	assert.Equal(t, scheduledID, *got.ScheduledScrapeID)
	assert.False(t, got.CancelRequested)
	assert.Nil(t, got.StartedAt)

	_, err = store.Get("SJ_missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestJobStoreUpdateTransitions(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	b := seedBoard(t, db)
	store := NewJobStore(db)

	j := mustNewJob(t, b.ID)
	require.NoError(t, store.Create(j))

	j.Start()
	require.NoError(t, store.Update(j))
	got, err := store.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)

	j.Fail(errors.New("fetch exploded"))
	require.NoError(t, store.Update(j))
	got, err = store.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, got.Status)
	assert.Equal(t, "fetch exploded", got.LastError)
	require.NotNil(t, got.CompletedAt)

	missing := mustNewJob(t, b.ID)
	assert.True(t, errors.IsNotFound(store.Update(missing)))
}

func TestJobStoreRequestCancel(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	b := seedBoard(t, db)
	store := NewJobStore(db)

	j := mustNewJob(t, b.ID)
	require.NoError(t, store.Create(j))

	require.NoError(t, store.RequestCancel(j.ID))
	got, err := store.Get(j.ID)
	require.NoError(t, err)
	assert.True(t, got.CancelRequested)
	assert.Equal(t, JobStatusPending, got.Status, "the flag alone does not change status")

	assert.True(t, errors.IsNotFound(store.RequestCancel("SJ_missing")))
}

func TestJobStoreCounters(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	b := seedBoard(t, db)
	store := NewJobStore(db)

	j := mustNewJob(t, b.ID)
	require.NoError(t, store.Create(j))

	require.NoError(t, store.AddItemsFound(j.ID, 7))
	require.NoError(t, store.AddItemsFound(j.ID, 3))
	require.NoError(t, store.IncrementItemsCreated(j.ID))

	got, err := store.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ItemsFound)
	assert.Equal(t, 1, got.ItemsCreated)
}

func TestJobStoreListAndCounts(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	b := seedBoard(t, db)
	store := NewJobStore(db)

	pending := mustNewJob(t, b.ID)
	require.NoError(t, store.Create(pending))

	done := mustNewJob(t, b.ID)
	done.Complete()
	require.NoError(t, store.Create(done))

	failed := mustNewJob(t, b.ID)
	failed.Fail(errors.New("boom"))
	require.NoError(t, store.Create(failed))

	all, err := store.List(nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	status := JobStatusPending
	pendingOnly, err := store.List(&status, 10)
	require.NoError(t, err)
	require.Len(t, pendingOnly, 1)
	assert.Equal(t, pending.ID, pendingOnly[0].ID)

	count, err := store.CountByStatus(JobStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	completedToday, err := store.CountCompletedSince(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, completedToday)

	finished, err := store.ListRecentFinished(10)
	require.NoError(t, err)
	assert.Len(t, finished, 2)
}

func TestRunStoreCreateGetUpdate(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	b := seedBoard(t, db)
	jobs := NewJobStore(db)
	runs := NewRunStore(db)

	j := mustNewJob(t, b.ID)
	require.NoError(t, jobs.Create(j))

	r := NewRun(j.ID, b.ID)
	require.NoError(t, runs.Create(r))

	got, err := runs.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Equal(t, j.ID, got.ScrapeJobID)
	assert.Nil(t, got.HTTPStatus)

	status := 200
	r.HTTPStatus = &status
	r.PagesScraped = 3
	r.ItemsFound = 12
	r.Complete()
	require.NoError(t, runs.Update(r))

	got, err = runs.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, 3, got.PagesScraped)
	assert.Equal(t, 12, got.ItemsFound)
	require.NotNil(t, got.HTTPStatus)
	assert.Equal(t, 200, *got.HTTPStatus)
	require.NotNil(t, got.CompletedAt)

	_, err = runs.Get("SR_missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestRunStoreUniquePerJobAndBoard(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	b := seedBoard(t, db)
	jobs := NewJobStore(db)
	runs := NewRunStore(db)

	j := mustNewJob(t, b.ID)
	require.NoError(t, jobs.Create(j))

	require.NoError(t, runs.Create(NewRun(j.ID, b.ID)))
	err := runs.Create(NewRun(j.ID, b.ID))
	assert.True(t, errors.IsConflict(err))

	got, err := runs.GetByJobAndBoard(j.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	none, err := runs.GetByJobAndBoard(j.ID, "JB_other")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRunStoreIncrementItemsCreatedBumpsParent(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	b := seedBoard(t, db)
	jobs := NewJobStore(db)
	runs := NewRunStore(db)

	j := mustNewJob(t, b.ID)
	require.NoError(t, jobs.Create(j))
	r := NewRun(j.ID, b.ID)
	require.NoError(t, runs.Create(r))

	require.NoError(t, runs.IncrementItemsCreated(r.ID))
	require.NoError(t, runs.IncrementItemsCreated(r.ID))

	gotRun, err := runs.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotRun.ItemsCreated)

	gotJob, err := jobs.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotJob.ItemsCreated)

	assert.True(t, errors.IsNotFound(runs.IncrementItemsCreated("SR_missing")))
}

func TestRunStoreCountTerminalByJob(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	b1 := seedBoard(t, db)
	b2 := seedBoard(t, db)
	jobs := NewJobStore(db)
	runs := NewRunStore(db)

	j := mustNewJob(t, b1.ID, b2.ID)
	require.NoError(t, jobs.Create(j))

	r1 := NewRun(j.ID, b1.ID)
	require.NoError(t, runs.Create(r1))
	r2 := NewRun(j.ID, b2.ID)
	require.NoError(t, runs.Create(r2))

	count, err := runs.CountTerminalByJob(j.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	r1.Complete()
	require.NoError(t, runs.Update(r1))
	r2.Fail(errors.New("timeout"))
	require.NoError(t, runs.Update(r2))

	count, err = runs.CountTerminalByJob(j.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	listed, err := runs.ListByJob(j.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}
