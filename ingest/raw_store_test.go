package ingest

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobrake/jobrake/errors"
	jobraketest "github.com/jobrake/jobrake/internal/testing"
)

// seedRun inserts the board, scrape job, and scrape run rows that raw jobs
// reference.
func seedRun(t *testing.T, db *sql.DB, boardID, runID string) {
	t.Helper()
	now := time.Now()

	_, err := db.Exec(`
		INSERT INTO job_boards (id, name, kind, source_config, created_at, updated_at)
		VALUES (?, ?, 'rss', '{"rss":{"feed_url":"https://example.com/feed"}}', ?, ?)
	`, boardID, "Board "+boardID, now, now)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO scrape_jobs (id, status, board_ids, created_at, updated_at)
		VALUES ('SJ_seed', 'running', ?, ?, ?)
	`, `["`+boardID+`"]`, now, now)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO scrape_runs (id, scrape_job_id, board_id, started_at, created_at, updated_at)
		VALUES (?, 'SJ_seed', ?, ?, ?, ?)
	`, runID, boardID, now, now, now)
	require.NoError(t, err)
}

func testRecord(title, url string) Record {
	return Record{
		Title:       title,
		Company:     "Acme Corp",
		URL:         url,
		Description: "Build pipelines",
	}
}

func TestRawStoreCreateAndGet(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	seedRun(t, db, "JB_1", "SR_1")
	store := NewRawStore(db)

	raw, err := NewRawJob("SR_1", "JB_1", testRecord("Go Engineer", "https://example.com/j/1"))
	require.NoError(t, err)
	require.NoError(t, store.Create(raw))
	assert.Equal(t, "RJ_", raw.ID[:3])

	got, err := store.Get(raw.ID)
	require.NoError(t, err)
	assert.Equal(t, RawStatusPendingNormalization, got.Status)
	assert.Equal(t, raw.Checksum, got.Checksum)
	assert.Equal(t, "Go Engineer", got.Title)

	rec, err := got.Record()
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", rec.Company)
}

func TestRawStoreDuplicateChecksumConflicts(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	seedRun(t, db, "JB_1", "SR_1")
	store := NewRawStore(db)

	rec := testRecord("Go Engineer", "https://example.com/j/1")

	first, err := NewRawJob("SR_1", "JB_1", rec)
	require.NoError(t, err)
	require.NoError(t, store.Create(first))

	second, err := NewRawJob("SR_1", "JB_1", rec)
	require.NoError(t, err)
	err = store.Create(second)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err), "same (board, checksum) must conflict, got %v", err)
}

func TestRawStoreSameChecksumDifferentBoards(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	seedRun(t, db, "JB_1", "SR_1")

	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO job_boards (id, name, kind, source_config, created_at, updated_at)
		VALUES ('JB_2', 'Board Two', 'rss', '{"rss":{"feed_url":"https://two.example.com/feed"}}', ?, ?)
	`, now, now)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO scrape_runs (id, scrape_job_id, board_id, started_at, created_at, updated_at)
		VALUES ('SR_2', 'SJ_seed', 'JB_2', ?, ?, ?)
	`, now, now, now)
	require.NoError(t, err)

	store := NewRawStore(db)
	rec := testRecord("Go Engineer", "https://example.com/j/1")

	one, err := NewRawJob("SR_1", "JB_1", rec)
	require.NoError(t, err)
	require.NoError(t, store.Create(one))

	two, err := NewRawJob("SR_2", "JB_2", rec)
	require.NoError(t, err)
	require.NoError(t, store.Create(two), "dedup is per-board, not global")
}

func TestRawStoreStatusTransitions(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	seedRun(t, db, "JB_1", "SR_1")
	store := NewRawStore(db)

	raw, err := NewRawJob("SR_1", "JB_1", testRecord("Go Engineer", "https://example.com/j/1"))
	require.NoError(t, err)
	require.NoError(t, store.Create(raw))

	require.NoError(t, store.UpdateStatus(raw.ID, RawStatusRejected, "title too short"))
	got, err := store.Get(raw.ID)
	require.NoError(t, err)
	assert.Equal(t, RawStatusRejected, got.Status)
	assert.Equal(t, "title too short", got.StatusReason)

	require.NoError(t, store.MarkNormalized(raw.ID, "NJ_1"))
	got, err = store.Get(raw.ID)
	require.NoError(t, err)
	assert.Equal(t, RawStatusNormalized, got.Status)
	require.NotNil(t, got.NormalizedJobID)
	assert.Equal(t, "NJ_1", *got.NormalizedJobID)

	require.NoError(t, store.SetJobPost(raw.ID, "JP_1"))
	got, err = store.Get(raw.ID)
	require.NoError(t, err)
	require.NotNil(t, got.JobPostID)
	assert.Equal(t, "JP_1", *got.JobPostID)
}

func TestRawStoreUpdateNotFound(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewRawStore(db)

	err := store.UpdateStatus("RJ_missing", RawStatusRejected, "gone")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRawStoreListAndCount(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	seedRun(t, db, "JB_1", "SR_1")
	store := NewRawStore(db)

	for i, url := range []string{"https://example.com/j/1", "https://example.com/j/2"} {
		raw, err := NewRawJob("SR_1", "JB_1", testRecord("Go Engineer", url))
		require.NoError(t, err)
		raw.FetchedAt = time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Create(raw))
	}

	byRun, err := store.ListByRun("SR_1")
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	pending, err := store.ListByStatus(RawStatusPendingNormalization, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	count, err := store.CountByStatus(RawStatusPendingNormalization)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
