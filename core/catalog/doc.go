// Package catalog defines the canonical card model and its on-disk form.
//
// A Catalog is an insertion-ordered mapping of (card number, illustration
// variant) to Card. Order is preserved through persistence so that diffs of
// the catalog file and work plans derived from it are reproducible.
//
// # Persistence
//
// The catalog file is indented JSON ({"version":1,"cards":[...]}) written
// atomically by Save. Load treats a missing file as an empty catalog and any
// unreadable content as ErrCatalogCorrupt.
package catalog
