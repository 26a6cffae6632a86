package publish

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobrake/jobrake/errors"
	"github.com/jobrake/jobrake/ingest"
	jobraketest "github.com/jobrake/jobrake/internal/testing"
	"github.com/jobrake/jobrake/normalize"
)

// seedNormalizedJob builds the full upstream chain (board, job, run, raw job)
// and persists a normalized job with the given score and source URL.
func seedNormalizedJob(t *testing.T, db *sql.DB, n int, score float64, sourceURL string) *normalize.NormalizedJob {
	t.Helper()
	now := time.Now()

	if n == 1 {
		_, err := db.Exec(`
			INSERT INTO job_boards (id, name, kind, source_config, created_at, updated_at)
			VALUES ('JB_1', 'Board One', 'rss', '{"rss":{"feed_url":"https://example.com/feed"}}', ?, ?)
		`, now, now)
		require.NoError(t, err)

		_, err = db.Exec(`
			INSERT INTO scrape_jobs (id, status, board_ids, created_at, updated_at)
			VALUES ('SJ_1', 'running', '["JB_1"]', ?, ?)
		`, now, now)
		require.NoError(t, err)

		_, err = db.Exec(`
			INSERT INTO scrape_runs (id, scrape_job_id, board_id, started_at, created_at, updated_at)
			VALUES ('SR_1', 'SJ_1', 'JB_1', ?, ?, ?)
		`, now, now, now)
		require.NoError(t, err)
	}

	raw, err := ingest.NewRawJob("SR_1", "JB_1", ingest.Record{
		Title: fmt.Sprintf("Go Engineer %d", n),
		URL:   sourceURL,
	})
	require.NoError(t, err)
	require.NoError(t, ingest.NewRawStore(db).Create(raw))

	nj := &normalize.NormalizedJob{
		ID:              fmt.Sprintf("NJ_test%d", n),
		RawJobID:        raw.ID,
		BoardID:         "JB_1",
		Title:           fmt.Sprintf("Go Engineer %d", n),
		Company:         "Acme Corp",
		SourceURL:       sourceURL,
		SalaryCurrency:  "USD",
		ExperienceLevel: normalize.ExperienceMid,
		Skills:          []string{"go"},
		Benefits:        []string{},
		ConfidenceScore: score,
		Status:          normalize.StatusPendingReview,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, normalize.NewStore(db).Create(nj))
	return nj
}

func TestPublishAboveThreshold(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	nj := seedNormalizedJob(t, db, 1, 0.9, "https://example.com/j/1")
	pub := NewPublisher(db)

	result, err := pub.Publish(nj, 0.75)
	require.NoError(t, err)

	assert.Equal(t, OutcomePublished, result.Outcome)
	require.NotNil(t, result.Post)
	assert.Equal(t, "JP_", result.Post.ID[:3])
	assert.Equal(t, PostStatusPendingApproval, result.Post.Status)
	assert.Equal(t, "https://example.com/j/1", result.Post.SourceURL)
	require.NotNil(t, result.Post.PostedAt, "posted_at falls back to the normalized job's creation time")

	got, err := normalize.NewStore(db).Get(nj.ID)
	require.NoError(t, err)
	assert.Equal(t, normalize.StatusApproved, got.Status)
	require.NotNil(t, got.JobPostID)
	assert.Equal(t, result.Post.ID, *got.JobPostID)
}

func TestPublishBelowThreshold(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	nj := seedNormalizedJob(t, db, 1, 0.5, "https://example.com/j/1")
	pub := NewPublisher(db)

	result, err := pub.Publish(nj, 0.75)
	require.NoError(t, err)

	assert.Equal(t, OutcomeLowQuality, result.Outcome)
	assert.Nil(t, result.Post)

	got, err := normalize.NewStore(db).Get(nj.ID)
	require.NoError(t, err)
	assert.Equal(t, normalize.StatusLowQuality, got.Status)
	assert.Nil(t, got.JobPostID)

	count, err := pub.Posts().Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPublishExactlyAtThreshold(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	nj := seedNormalizedJob(t, db, 1, 0.75, "https://example.com/j/1")
	pub := NewPublisher(db)

	result, err := pub.Publish(nj, 0.75)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, result.Outcome, "score equal to threshold passes the gate")
}

func TestPublishDuplicateSourceURL(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	pub := NewPublisher(db)

	first := seedNormalizedJob(t, db, 1, 0.9, "https://example.com/j/1")
	firstResult, err := pub.Publish(first, 0.75)
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, firstResult.Outcome)

	// Same URL fetched again later, different raw content
	second := seedNormalizedJob(t, db, 2, 0.85, "https://example.com/j/1")
	secondResult, err := pub.Publish(second, 0.75)
	require.NoError(t, err)

	assert.Equal(t, OutcomeDuplicate, secondResult.Outcome)
	require.NotNil(t, secondResult.Post)
	assert.Equal(t, firstResult.Post.ID, secondResult.Post.ID, "duplicate links to the existing post")

	got, err := normalize.NewStore(db).Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, normalize.StatusApproved, got.Status, "duplicates still count as approved")
	require.NotNil(t, got.JobPostID)
	assert.Equal(t, firstResult.Post.ID, *got.JobPostID)

	count, err := pub.Posts().Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "no second post for the same source url")
}

func TestStoreCreateConflictOnSourceURL(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	nj := seedNormalizedJob(t, db, 1, 0.9, "https://example.com/j/1")
	store := NewStore(db)

	first := postFromNormalized(nj)
	require.NoError(t, store.Create(first))

	second := postFromNormalized(nj)
	err := store.Create(second)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestStoreGetBySourceURL(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	nj := seedNormalizedJob(t, db, 1, 0.9, "https://example.com/j/1")
	store := NewStore(db)

	missing, err := store.GetBySourceURL("https://example.com/j/1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	post := postFromNormalized(nj)
	require.NoError(t, store.Create(post))

	got, err := store.GetBySourceURL("https://example.com/j/1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, post.ID, got.ID)
}

func TestStoreListFiltersByStatus(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	nj := seedNormalizedJob(t, db, 1, 0.9, "https://example.com/j/1")
	store := NewStore(db)

	post := postFromNormalized(nj)
	require.NoError(t, store.Create(post))

	pending := PostStatusPendingApproval
	posts, err := store.List(&pending, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	approved := PostStatusApproved
	posts, err = store.List(&approved, 10)
	require.NoError(t, err)
	assert.Empty(t, posts)

	all, err := store.List(nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
