package reconcile

import (
	"context"

	"cardsync/core/catalog"
)

// Source defines the contract of a Source Adapter.
// Each adapter translates one external provider (API, web page, spreadsheet,
// embedded database) into normalized CardRecords.
type Source interface {
	// Name returns the unique, stable id of this source (e.g. "decklog").
	// It is persisted as field provenance in the catalog.
	Name() string

	// Collect returns every record of the provider that matches filter.
	// A failure to reach the provider must wrap ErrSourceUnavailable.
	// A failure after some records were read must wrap ErrPartialData and
	// still return the records read so far.
	Collect(ctx context.Context, filter catalog.Filter) ([]CardRecord, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc struct {
	ID string
	Fn func(ctx context.Context, filter catalog.Filter) ([]CardRecord, error)
}

// Name returns the id of the source.
func (s SourceFunc) Name() string { return s.ID }

// Collect calls the wrapped function.
func (s SourceFunc) Collect(ctx context.Context, filter catalog.Filter) ([]CardRecord, error) {
	return s.Fn(ctx, filter)
}
