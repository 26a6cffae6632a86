package ingest

import (
	"context"

	"github.com/jobrake/jobrake/board"
	"github.com/jobrake/jobrake/errors"
)

// FetchResult is what one adapter invocation produced. ItemsFound counts
// every listing the source presented, including ones dropped as invalid;
// Records holds only the valid ones.
type FetchResult struct {
	Records       []Record
	ItemsFound    int
	PagesFetched  int
	HTTPStatus    int
	ResponseBytes int
}

// Adapter fetches raw listings for one source kind.
type Adapter interface {
	// Fetch pulls listings for the board. Partial results are returned
	// alongside the error where possible so callers can record page and
	// byte counts from a failed run.
	Fetch(ctx context.Context, b *board.Board) (*FetchResult, error)

	// Kind returns the source kind this adapter serves.
	Kind() board.Kind
}

// ForBoard returns the adapter for the board's source kind.
func ForBoard(b *board.Board) (Adapter, error) {
	switch b.Kind {
	case board.KindRSS:
		return NewRSSAdapter(), nil
	case board.KindHTML:
		return NewHTMLAdapter(), nil
	case board.KindAPI:
		return NewAPIAdapter(), nil
	default:
		return nil, errors.NewInvalidConfig("unsupported source kind: %s", b.Kind)
	}
}
