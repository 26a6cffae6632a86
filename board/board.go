// Package board defines job board source configurations. Boards are created
// by administrators and read by the pipeline; the pipeline only writes back
// aggregate scrape counters.
package board

import (
	"time"

	"github.com/jobrake/jobrake/errors"
)

// Kind identifies the ingestion protocol for a board
type Kind string

const (
	KindRSS  Kind = "rss"
	KindHTML Kind = "html"
	KindAPI  Kind = "api"
)

// IsValidKind returns true if the kind string is a supported source kind
func IsValidKind(s string) bool {
	switch Kind(s) {
	case KindRSS, KindHTML, KindAPI:
		return true
	default:
		return false
	}
}

// Board is one job board source configuration
type Board struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Kind             Kind         `json:"kind"`
	SourceConfig     SourceConfig `json:"source_config"`
	RequestTimeout   int          `json:"request_timeout_seconds"`
	RetryAttempts    int          `json:"retry_attempts"`
	QualityThreshold float64      `json:"quality_threshold"`
	IsActive         bool         `json:"is_active"`

	// Lifetime counters, maintained by the pipeline
	TotalScrapes      int        `json:"total_scrapes"`
	SuccessfulScrapes int        `json:"successful_scrapes"`
	FailedScrapes     int        `json:"failed_scrapes"`
	LastScrapedAt     *time.Time `json:"last_scraped_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Timeout returns the per-request timeout as a duration
func (b *Board) Timeout() time.Duration {
	if b.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.RequestTimeout) * time.Second
}

// Validate checks the board's invariants, including the kind-specific
// source configuration arm.
func (b *Board) Validate() error {
	if b.Name == "" {
		return errors.NewInvalidConfig("board name is required")
	}
	if !IsValidKind(string(b.Kind)) {
		return errors.NewInvalidConfig("unsupported source kind: %s", b.Kind)
	}
	if b.QualityThreshold < 0 || b.QualityThreshold > 1 {
		return errors.NewInvalidConfig("quality threshold must be in [0, 1], got %v", b.QualityThreshold)
	}
	if b.RetryAttempts < 0 {
		return errors.NewInvalidConfig("retry attempts cannot be negative")
	}
	return b.SourceConfig.Validate(b.Kind)
}
