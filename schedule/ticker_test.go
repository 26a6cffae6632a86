package schedule

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobrake/jobrake/errors"
	jobraketest "github.com/jobrake/jobrake/internal/testing"
	"github.com/jobrake/jobrake/scrape"
)

// fakeEnqueuer records enqueue calls and persists the job so the ticker's
// active-job dedup sees it.
type fakeEnqueuer struct {
	jobs  *scrape.JobStore
	calls []*scrape.Job
	fail  error
}

func (f *fakeEnqueuer) EnqueueJob(boardIDs []string, priority int, scheduledScrapeID *string) (*scrape.Job, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	j, err := scrape.NewJob(boardIDs, priority, scheduledScrapeID)
	if err != nil {
		return nil, err
	}
	if err := f.jobs.Create(j); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, j)
	return j, nil
}

func seedScheduleBoard(t *testing.T, db *sql.DB) string {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO job_boards (id, name, kind, source_config, created_at, updated_at)
		VALUES ('JB_sched', 'Sched Board', 'rss', '{"rss":{"feed_url":"https://example.com/feed"}}', ?, ?)
	`, time.Now(), time.Now())
	require.NoError(t, err)
	return "JB_sched"
}

func dueSchedule(t *testing.T, store *Store, boardID string) *Schedule {
	t.Helper()
	sc, err := New("hourly", []string{boardID}, 3600)
	require.NoError(t, err)
	past := time.Now().Add(-time.Minute)
	sc.NextRunAt = &past
	require.NoError(t, store.Create(sc))
	return sc
}

func TestTickEnqueuesDueSchedule(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	boardID := seedScheduleBoard(t, db)
	enq := &fakeEnqueuer{jobs: scrape.NewJobStore(db)}
	ticker := NewTicker(db, enq, 0)

	sc := dueSchedule(t, ticker.Store(), boardID)

	now := time.Now()
	ticker.Tick(now)

	require.Len(t, enq.calls, 1)
	j := enq.calls[0]
	assert.Equal(t, []string{boardID}, j.BoardIDs)
	require.NotNil(t, j.ScheduledScrapeID)
	assert.Equal(t, sc.ID, *j.ScheduledScrapeID)

	got, err := ticker.Store().Get(sc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRunAt)
	require.NotNil(t, got.NextRunAt)
	assert.True(t, got.NextRunAt.After(now), "next run advanced past now")
}

func TestTickSkipsScheduleWithActiveJob(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	boardID := seedScheduleBoard(t, db)
	enq := &fakeEnqueuer{jobs: scrape.NewJobStore(db)}
	ticker := NewTicker(db, enq, 0)

	sc := dueSchedule(t, ticker.Store(), boardID)

	ticker.Tick(time.Now())
	require.Len(t, enq.calls, 1)

	// The spawned job is still pending; force the schedule due again
	past := time.Now().Add(-time.Minute)
	sc, err := ticker.Store().Get(sc.ID)
	require.NoError(t, err)
	sc.NextRunAt = &past
	require.NoError(t, ticker.Store().Update(sc))

	ticker.Tick(time.Now())
	assert.Len(t, enq.calls, 1, "no second job while the first is active")

	// Finish the job and the schedule fires again
	j := enq.calls[0]
	j.Complete()
	require.NoError(t, enq.jobs.Update(j))
	sc, err = ticker.Store().Get(sc.ID)
	require.NoError(t, err)
	sc.NextRunAt = &past
	require.NoError(t, ticker.Store().Update(sc))

	ticker.Tick(time.Now())
	assert.Len(t, enq.calls, 2)
}

func TestTickIgnoresPausedSchedules(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	boardID := seedScheduleBoard(t, db)
	enq := &fakeEnqueuer{jobs: scrape.NewJobStore(db)}
	ticker := NewTicker(db, enq, 0)

	sc := dueSchedule(t, ticker.Store(), boardID)
	require.NoError(t, ticker.Store().SetState(sc.ID, StatePaused))

	ticker.Tick(time.Now())
	assert.Empty(t, enq.calls)
}

func TestTickSurvivesEnqueueFailure(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	boardID := seedScheduleBoard(t, db)
	enq := &fakeEnqueuer{jobs: scrape.NewJobStore(db), fail: errors.New("board deleted")}
	ticker := NewTicker(db, enq, 0)

	sc := dueSchedule(t, ticker.Store(), boardID)

	ticker.Tick(time.Now())

	// Schedule not advanced: it retries on the next scan
	got, err := ticker.Store().Get(sc.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastRunAt)
}

func TestStoreLifecycle(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	sc, err := New("nightly", []string{"JB_a", "JB_b"}, 86400)
	require.NoError(t, err)
	require.NoError(t, store.Create(sc))

	got, err := store.Get(sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "nightly", got.Name)
	assert.Equal(t, []string{"JB_a", "JB_b"}, got.BoardIDs)
	assert.Equal(t, 86400, got.IntervalSeconds)

	all, err := store.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Delete(sc.ID))
	_, err = store.Get(sc.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(store.Delete(sc.ID)))
}
