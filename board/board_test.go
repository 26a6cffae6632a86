package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobrake/jobrake/errors"
	jobraketest "github.com/jobrake/jobrake/internal/testing"
)

func rssBoard(name string) *Board {
	return &Board{
		Name: name,
		Kind: KindRSS,
		SourceConfig: SourceConfig{
			RSS: &RSSConfig{FeedURL: "https://jobs.example.com/feed.xml"},
		},
		RequestTimeout:   30,
		RetryAttempts:    3,
		QualityThreshold: 0.75,
		IsActive:         true,
	}
}

func htmlBoard(name string) *Board {
	return &Board{
		Name: name,
		Kind: KindHTML,
		SourceConfig: SourceConfig{
			HTML: &HTMLConfig{
				BaseURL: "https://jobs.example.com/listings",
				Selectors: SelectorMap{
					Item:  "div.job-card",
					Title: "h2.title",
					Link:  "a.apply",
				},
				MaxPages:         5,
				RateLimitDelayMS: 100,
			},
		},
		RequestTimeout:   30,
		RetryAttempts:    3,
		QualityThreshold: 0.75,
		IsActive:         true,
	}
}

func TestBoardValidate(t *testing.T) {
	require.NoError(t, rssBoard("Example Jobs").Validate())
	require.NoError(t, htmlBoard("Example HTML").Validate())

	api := &Board{
		Name:             "Example API",
		Kind:             KindAPI,
		SourceConfig:     SourceConfig{API: &APIConfig{Endpoint: "https://api.example.com/jobs"}},
		QualityThreshold: 0.75,
	}
	require.NoError(t, api.Validate())
}

func TestBoardValidateRejectsMismatchedArm(t *testing.T) {
	b := rssBoard("Example Jobs")
	b.Kind = KindHTML

	err := b.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestBoardValidateRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Board)
	}{
		{"missing name", func(b *Board) { b.Name = "" }},
		{"bad kind", func(b *Board) { b.Kind = "graphql" }},
		{"threshold above one", func(b *Board) { b.QualityThreshold = 1.5 }},
		{"negative threshold", func(b *Board) { b.QualityThreshold = -0.1 }},
		{"missing feed url", func(b *Board) { b.SourceConfig.RSS.FeedURL = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := rssBoard("Example Jobs")
			tc.mutate(b)
			err := b.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalidConfig(err))
		})
	}
}

func TestHTMLConfigValidateSelectors(t *testing.T) {
	b := htmlBoard("Example HTML")
	b.SourceConfig.HTML.Selectors.Item = ""
	require.Error(t, b.Validate())

	b = htmlBoard("Example HTML")
	b.SourceConfig.HTML.Selectors.Link = ""
	require.Error(t, b.Validate())

	b = htmlBoard("Example HTML")
	b.SourceConfig.HTML.MaxPages = 0
	require.Error(t, b.Validate())
}

func TestStoreCreateAndGetRoundTrip(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	b := htmlBoard("Example HTML")
	require.NoError(t, store.Create(b))
	require.NotEmpty(t, b.ID)
	assert.Equal(t, "JB_", b.ID[:3])

	got, err := store.Get(b.ID)
	require.NoError(t, err)

	assert.Equal(t, b.Name, got.Name)
	assert.Equal(t, KindHTML, got.Kind)
	require.NotNil(t, got.SourceConfig.HTML)
	assert.Equal(t, "div.job-card", got.SourceConfig.HTML.Selectors.Item)
	assert.Equal(t, 5, got.SourceConfig.HTML.MaxPages)
	assert.Equal(t, 0.75, got.QualityThreshold)
	assert.True(t, got.IsActive)
}

func TestStoreCreateRejectsInvalid(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	b := rssBoard("Broken")
	b.SourceConfig.RSS.FeedURL = ""
	err := store.Create(b)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestStoreGetNotFound(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	_, err := store.Get("JB_missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStoreListActiveOnly(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	active := rssBoard("Active Board")
	require.NoError(t, store.Create(active))

	inactive := rssBoard("Inactive Board")
	inactive.IsActive = false
	require.NoError(t, store.Create(inactive))

	all, err := store.List(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	activeBoards, err := store.List(true)
	require.NoError(t, err)
	require.Len(t, activeBoards, 1)
	assert.Equal(t, active.ID, activeBoards[0].ID)
}

func TestStoreUpdate(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	b := rssBoard("Example Jobs")
	require.NoError(t, store.Create(b))

	b.Name = "Renamed Jobs"
	b.QualityThreshold = 0.9
	b.IsActive = false
	require.NoError(t, store.Update(b))

	got, err := store.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Jobs", got.Name)
	assert.Equal(t, 0.9, got.QualityThreshold)
	assert.False(t, got.IsActive)
}

func TestStoreUpdateNotFound(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	b := rssBoard("Ghost")
	b.ID = "JB_ghost"
	err := store.Update(b)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStoreRecordScrapeResult(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	b := rssBoard("Example Jobs")
	require.NoError(t, store.Create(b))

	require.NoError(t, store.RecordScrapeResult(b.ID, true))
	require.NoError(t, store.RecordScrapeResult(b.ID, true))
	require.NoError(t, store.RecordScrapeResult(b.ID, false))

	got, err := store.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalScrapes)
	assert.Equal(t, 2, got.SuccessfulScrapes)
	assert.Equal(t, 1, got.FailedScrapes)
	require.NotNil(t, got.LastScrapedAt)
}

func TestStoreRecordScrapeResultNotFound(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	err := store.RecordScrapeResult("JB_missing", true)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStoreSetActive(t *testing.T) {
	db := jobraketest.CreateTestDB(t)
	store := NewStore(db)

	b := rssBoard("Example Jobs")
	require.NoError(t, store.Create(b))

	require.NoError(t, store.SetActive(b.ID, false))
	got, err := store.Get(b.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := store.List(true)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, store.SetActive(b.ID, true))
	got, err = store.Get(b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	err = store.SetActive("JB_missing", true)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
