package reconcile

import (
	"errors"

	"cardsync/core/catalog"

	"go.uber.org/zap"
)

var (
	// ErrSourceUnavailable means an adapter produced no usable records.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrPartialData means an adapter failed part-way; its records are kept.
	ErrPartialData = errors.New("partial data")
	// ErrConflictingData marks two equal-priority sources disagreeing on a field.
	// It is reported, never returned.
	ErrConflictingData = errors.New("conflicting data")
)

// AnyVariant is the variant of a record that applies to every illustration
// of its card number (e.g. a translation keyed by number only).
const AnyVariant = -1

// CardRecord is one normalized record emitted by a Source for one run.
type CardRecord struct {
	// SourceID is overwritten with the emitting Source's Name during folding.
	SourceID string
	Number   string
	// Variant is the illustration ordinal, or AnyVariant.
	Variant int
	// MatchRarity narrows an AnyVariant record to the existing variants of
	// that rarity. Such a record never creates a card.
	MatchRarity string
	catalog.Attributes
}

// Ranked pairs a Source with its priority. Lower priority values win.
type Ranked struct {
	Source   Source
	Priority int
}

// Spec defines the inputs of a reconciliation besides the prior catalog.
type Spec struct {
	// Sources lists adapters; order breaks ties between equal priorities
	// (first listed wins).
	Sources []Ranked

	// Filter restricts collection and folding to matching cards.
	Filter catalog.Filter

	// Logger receives source failures and conflicts. Nil disables logging.
	Logger *zap.Logger
}

// Change is the per-card outcome of a reconciliation.
type Change string

const (
	// ChangeUnchanged means the card attributes equal the prior catalog's.
	ChangeUnchanged Change = "unchanged"
	// ChangeMetadata means at least one attribute changed.
	ChangeMetadata Change = "metadata-changed"
	// ChangeCreated means the card was not in the prior catalog.
	ChangeCreated Change = "newly-created"
)

// SourceReport summarizes what one source contributed to a run.
type SourceReport struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Records  int    `json:"records"`
	// Err is the failure returned by Collect, if any.
	Err error `json:"-"`
}

// Failed reports whether the source was skipped entirely.
func (r SourceReport) Failed() bool {
	return r.Err != nil && !errors.Is(r.Err, ErrPartialData)
}

// Conflict records an equal-priority disagreement on one field.
type Conflict struct {
	Key       catalog.Key `json:"key"`
	Field     string      `json:"field"`
	Kept      string      `json:"kept"`
	KeptBy    string      `json:"kept_by"`
	Dropped   string      `json:"dropped"`
	DroppedBy string      `json:"dropped_by"`
}

// Result is the output of Reconcile.
type Result struct {
	// Catalog is the new canonical catalog. The prior catalog is not modified.
	Catalog *catalog.Catalog

	// Changes holds one entry per card of Catalog.
	Changes map[catalog.Key]Change

	// Sources holds one report per configured source, in rank order.
	Sources []SourceReport

	// Conflicts lists equal-priority disagreements resolved by listing order.
	Conflicts []Conflict
}

// Count returns the number of cards with the given change.
func (r *Result) Count(change Change) int {
	n := 0
	for _, c := range r.Changes {
		if c == change {
			n++
		}
	}
	return n
}
