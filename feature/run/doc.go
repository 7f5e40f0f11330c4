// Package run orchestrates a sync: the previous catalog is loaded, sources
// are reconciled into a new catalog, the work plan is derived from the asset
// store, images are fetched and committed, the catalog is saved, and archives
// are optionally packaged and published.
//
// Data flows strictly downward through those stages; the catalog is the only
// artifact they share. Every run gets a UUID that is attached to its logs.
package run
