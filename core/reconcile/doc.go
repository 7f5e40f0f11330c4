// Package reconcile merges card records from several sources into one
// canonical catalog and plans the image work that follows.
//
// # Reconciliation
//
// Every Source is collected concurrently, then its records are folded into a
// copy of the previous catalog one source at a time, strongest rank first.
// Rank is (priority, listing position); lower wins. For each field:
//
//   - an empty incoming value never clears a field
//   - an empty field is always filled (backfill by weaker sources)
//   - a filled field is replaced only by an equal-or-stronger source
//
// Field ownership is kept in the card's provenance, so a weaker source never
// overwrites a value set by a stronger one in an earlier run. Owners absent
// from the current run rank below every configured source.
//
// A source failing entirely (ErrSourceUnavailable) is skipped and logged; a
// source failing part-way (ErrPartialData) still contributes its records.
//
// # Planning
//
// BuildPlan combines the new catalog, the per-card Change and the on-disk
// inventory into an ordered Plan of WorkItems: skip, refetch or convert-only.
//
// # Usage Example
//
//	spec := &reconcile.Spec{
//	    Sources: []reconcile.Ranked{
//	        {Source: decklog.New(cfg), Priority: 1},
//	        {Source: sheet.New(cfg), Priority: 4},
//	    },
//	    Logger: logger,
//	}
//	res, err := reconcile.Reconcile(ctx, spec, prev)
//	inv, err := store.Scan(ctx, catalog.LocaleNative)
//	plan := reconcile.BuildPlan(res.Catalog, res.Changes, inv, reconcile.Directives{})
package reconcile
