package ingest

import (
	"context"

	"github.com/jobrake/jobrake/board"
	"github.com/jobrake/jobrake/errors"
)

// APIAdapter is the declared extension point for API-backed boards.
// It fails deterministically until a concrete API integration lands.
type APIAdapter struct{}

// NewAPIAdapter creates an API adapter
func NewAPIAdapter() *APIAdapter {
	return &APIAdapter{}
}

// Kind returns the source kind this adapter serves
func (a *APIAdapter) Kind() board.Kind { return board.KindAPI }

// Fetch always fails: API ingestion is declared but not implemented.
func (a *APIAdapter) Fetch(ctx context.Context, b *board.Board) (*FetchResult, error) {
	return nil, errors.Wrapf(errors.ErrUnsupported, "api ingestion is not implemented for board %s", b.ID)
}
