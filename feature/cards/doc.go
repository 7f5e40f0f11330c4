// Package cards exposes the saved catalog over HTTP.
//
// Routes:
//
//	GET  /cards               cards, filtered by ?number= and ?expansion=
//	GET  /cards/:number       every variant of one number
//	GET  /plan                work plan of the current asset store
//	GET  /integrity           asset counts per state and orphan files
//	POST /integrity/refresh   drop the cached store scan
//	GET  /assets/*            image files
//
// The feature never writes. Store scans are cached with a TTL and shared by
// concurrent requests.
package cards
