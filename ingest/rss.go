package ingest

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/jobrake/jobrake/board"
	"github.com/jobrake/jobrake/errors"
	"github.com/jobrake/jobrake/internal/httpclient"
	"github.com/jobrake/jobrake/logger"
)

// RSSAdapter ingests RSS and Atom feeds. The feed URL is fetched once per
// run; every entry is one candidate record.
type RSSAdapter struct {
	parser *gofeed.Parser
}

// NewRSSAdapter creates an RSS adapter
func NewRSSAdapter() *RSSAdapter {
	return &RSSAdapter{parser: gofeed.NewParser()}
}

// Kind returns the source kind this adapter serves
func (a *RSSAdapter) Kind() board.Kind { return board.KindRSS }

// Fetch pulls the feed and extracts one record per entry. Entries missing a
// title or link count toward ItemsFound but are dropped with a warning.
func (a *RSSAdapter) Fetch(ctx context.Context, b *board.Board) (*FetchResult, error) {
	cfg := b.SourceConfig.RSS
	if cfg == nil {
		return nil, errors.NewInvalidConfig("board %s has no rss source config", b.ID)
	}

	log := logger.ComponentLogger("ingest.rss").With(logger.FieldBoardID, b.ID)
	client := httpclient.New(b.Timeout())

	result := &FetchResult{}
	body, status, err := fetchWithRetry(ctx, client, cfg.FeedURL, cfg.Headers, b.RetryAttempts)
	result.HTTPStatus = status
	result.ResponseBytes = len(body)
	if err != nil {
		return result, err
	}
	result.PagesFetched = 1

	feed, err := a.parser.ParseString(string(body))
	if err != nil {
		return result, errors.Wrapf(err, "failed to parse feed from %s", cfg.FeedURL)
	}

	result.ItemsFound = len(feed.Items)
	for _, item := range feed.Items {
		rec := recordFromFeedItem(item)
		if !rec.Valid() {
			log.Warnw("Dropping invalid feed entry",
				"title", rec.Title,
				"url", rec.URL,
			)
			continue
		}
		result.Records = append(result.Records, rec)
	}

	log.Infow("Feed fetched",
		"feed_url", cfg.FeedURL,
		"items_found", result.ItemsFound,
		"valid_records", len(result.Records),
	)

	return result, nil
}

func recordFromFeedItem(item *gofeed.Item) Record {
	rec := Record{
		Title:       strings.TrimSpace(item.Title),
		Description: strings.TrimSpace(item.Description),
		URL:         strings.TrimSpace(item.Link),
		PostedDate:  strings.TrimSpace(item.Published),
	}
	if item.Author != nil {
		rec.Company = strings.TrimSpace(item.Author.Name)
	}
	if rec.Description == "" {
		rec.Description = strings.TrimSpace(item.Content)
	}
	// Some job feeds put location in the first category
	if len(item.Categories) > 0 {
		rec.Location = strings.TrimSpace(item.Categories[0])
	}
	return rec
}
