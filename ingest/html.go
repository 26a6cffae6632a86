package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/jobrake/jobrake/board"
	"github.com/jobrake/jobrake/errors"
	"github.com/jobrake/jobrake/internal/httpclient"
	"github.com/jobrake/jobrake/logger"
)

const defaultPageParam = "page"

// HTMLAdapter ingests paginated HTML listing pages using the board's
// configured CSS selectors. Pagination stops at max_pages or at the first
// page that yields zero valid records.
type HTMLAdapter struct{}

// NewHTMLAdapter creates an HTML adapter
func NewHTMLAdapter() *HTMLAdapter {
	return &HTMLAdapter{}
}

// Kind returns the source kind this adapter serves
func (a *HTMLAdapter) Kind() board.Kind { return board.KindHTML }

// Fetch paginates through the board's listing pages. The inter-page rate
// limit blocks inside this call only; concurrent runs for other boards are
// unaffected.
func (a *HTMLAdapter) Fetch(ctx context.Context, b *board.Board) (*FetchResult, error) {
	cfg := b.SourceConfig.HTML
	if cfg == nil {
		return nil, errors.NewInvalidConfig("board %s has no html source config", b.ID)
	}

	log := logger.ComponentLogger("ingest.html").With(logger.FieldBoardID, b.ID)
	client := httpclient.New(b.Timeout())

	var limiter *rate.Limiter
	if delay := cfg.RateLimitDelay(); delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	result := &FetchResult{}
	for page := 1; page <= cfg.MaxPages; page++ {
		if page > 1 && limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return result, errors.Wrap(err, "rate limit wait cancelled")
			}
		}

		pageURL, err := buildPageURL(cfg, page)
		if err != nil {
			return result, err
		}

		body, status, err := fetchWithRetry(ctx, client, pageURL, cfg.Headers, b.RetryAttempts)
		result.HTTPStatus = status
		result.ResponseBytes += len(body)
		if err != nil {
			return result, err
		}
		result.PagesFetched++

		pageRecords, pageFound, err := extractRecords(body, cfg, pageURL)
		if err != nil {
			return result, err
		}
		result.ItemsFound += pageFound
		result.Records = append(result.Records, pageRecords...)

		log.Debugw("Page scraped",
			"page", page,
			"url", pageURL,
			"items_found", pageFound,
			"valid_records", len(pageRecords),
		)

		// First empty page signals end of results
		if len(pageRecords) == 0 {
			break
		}
	}

	log.Infow("Board scraped",
		"pages", result.PagesFetched,
		"items_found", result.ItemsFound,
		"valid_records", len(result.Records),
	)

	return result, nil
}

// buildPageURL appends the pagination query parameter for pages after the
// first. Page one is the base URL untouched.
func buildPageURL(cfg *board.HTMLConfig, page int) (string, error) {
	if page == 1 {
		return cfg.BaseURL, nil
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid base URL %q", cfg.BaseURL)
	}

	param := cfg.PageParam
	if param == "" {
		param = defaultPageParam
	}

	q := u.Query()
	q.Set(param, fmt.Sprintf("%d", page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// extractRecords parses one page and pulls a record per item element.
// Returns the valid records and the total number of item elements seen.
func extractRecords(body []byte, cfg *board.HTMLConfig, pageURL string) ([]Record, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to parse HTML")
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "invalid page URL %q", pageURL)
	}

	sel := cfg.Selectors
	var records []Record
	found := 0
	doc.Find(sel.Item).Each(func(_ int, s *goquery.Selection) {
		found++

		rec := Record{
			Title:       selectText(s, sel.Title),
			Company:     selectText(s, sel.Company),
			Location:    selectText(s, sel.Location),
			Description: selectText(s, sel.Description),
			Salary:      selectText(s, sel.Salary),
			PostedDate:  selectText(s, sel.PostedDate),
			URL:         selectLink(s, sel.Link, base),
		}
		if rec.Valid() {
			records = append(records, rec)
		}
	})

	return records, found, nil
}

func selectText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}

// selectLink pulls an href and resolves it against the page URL so relative
// links become absolute.
func selectLink(s *goquery.Selection, selector string, base *url.URL) string {
	if selector == "" {
		return ""
	}

	href, ok := s.Find(selector).First().Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
