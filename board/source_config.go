package board

import (
	"encoding/json"
	"time"

	"github.com/jobrake/jobrake/errors"
)

// SourceConfig is a tagged union over the per-kind configuration arms.
// Exactly one arm must be populated, matching the board's kind.
type SourceConfig struct {
	RSS  *RSSConfig  `json:"rss,omitempty"`
	HTML *HTMLConfig `json:"html,omitempty"`
	API  *APIConfig  `json:"api,omitempty"`
}

// RSSConfig configures an RSS/Atom feed source
type RSSConfig struct {
	FeedURL string            `json:"feed_url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// HTMLConfig configures a scraped HTML listing source
type HTMLConfig struct {
	BaseURL string            `json:"base_url"`
	Headers map[string]string `json:"headers,omitempty"`

	// Selectors map record fields to CSS selectors. "item" is the
	// per-record container and is required; the rest are resolved
	// relative to it.
	Selectors SelectorMap `json:"selectors"`

	MaxPages         int    `json:"max_pages"`
	RateLimitDelayMS int    `json:"rate_limit_delay_ms"`
	PageParam        string `json:"page_param,omitempty"` // query param for pagination, default "page"
}

// SelectorMap holds the CSS selectors used to extract one record per
// matching item element.
type SelectorMap struct {
	Item        string `json:"item"`
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Salary      string `json:"salary,omitempty"`
	Link        string `json:"link"`
	PostedDate  string `json:"posted_date,omitempty"`
}

// APIConfig configures an API source. Declared as an extension point; the
// adapter rejects it deterministically.
type APIConfig struct {
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// RateLimitDelay returns the inter-page delay for HTML pagination
func (c *HTMLConfig) RateLimitDelay() time.Duration {
	if c.RateLimitDelayMS <= 0 {
		return 0
	}
	return time.Duration(c.RateLimitDelayMS) * time.Millisecond
}

// Validate checks that exactly the arm matching kind is populated and that
// the arm carries its required fields.
func (sc SourceConfig) Validate(kind Kind) error {
	switch kind {
	case KindRSS:
		if sc.RSS == nil {
			return errors.NewInvalidConfig("rss board requires an rss source config")
		}
		if sc.RSS.FeedURL == "" {
			return errors.NewInvalidConfig("rss board requires a feed_url")
		}
	case KindHTML:
		if sc.HTML == nil {
			return errors.NewInvalidConfig("html board requires an html source config")
		}
		if sc.HTML.BaseURL == "" {
			return errors.NewInvalidConfig("html board requires a base_url")
		}
		if sc.HTML.Selectors.Item == "" {
			return errors.NewInvalidConfig("html board requires an item selector")
		}
		if sc.HTML.Selectors.Title == "" {
			return errors.NewInvalidConfig("html board requires a title selector")
		}
		if sc.HTML.Selectors.Link == "" {
			return errors.NewInvalidConfig("html board requires a link selector")
		}
		if sc.HTML.MaxPages < 1 {
			return errors.NewInvalidConfig("html board max_pages must be at least 1")
		}
	case KindAPI:
		if sc.API == nil {
			return errors.NewInvalidConfig("api board requires an api source config")
		}
		if sc.API.Endpoint == "" {
			return errors.NewInvalidConfig("api board requires an endpoint")
		}
	default:
		return errors.NewInvalidConfig("unsupported source kind: %s", kind)
	}
	return nil
}

// marshalSourceConfig serializes the config for storage
func marshalSourceConfig(sc SourceConfig) (string, error) {
	data, err := json.Marshal(sc)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal source config")
	}
	return string(data), nil
}

// unmarshalSourceConfig deserializes a stored config
func unmarshalSourceConfig(data string) (SourceConfig, error) {
	var sc SourceConfig
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return SourceConfig{}, errors.Wrap(err, "failed to unmarshal source config")
	}
	return sc, nil
}
