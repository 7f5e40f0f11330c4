// Package sources holds helpers shared by the Source Adapters under it.
//
// Each subpackage implements reconcile.Source for one external provider:
//
//   - decklog: Deck Log card search API (primary)
//   - official: official card list pages
//   - holodelta: holoDelta card database
//   - sheet: translation spreadsheet CSV export
//   - yuyutei: yuyu-tei price listings
//
// Adapters only read. Normalization of numbers and text happens once, in the
// reconciliation engine.
package sources
