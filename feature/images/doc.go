// Package images runs the image synchronization stage of a sync.
//
// Every pending WorkItem is independent: fetch (or read the local file for
// convert-only items), verify it decodes, encode to the target format, write
// it atomically and hash the written bytes. Items run on a bounded errgroup
// pool and each writes only its own slot of the Report, so workers never
// share bookkeeping. Commit then applies the records to the catalog from a
// single goroutine, in plan order.
//
// A failed item keeps its previous asset record and is retried by the next
// run, because asset state is derived from disk and catalog rather than
// remembered.
package images
