// Package assets implements the local image store.
//
// The store keeps one directory tree per locale (native, proxy). File names
// are a pure function of (card number, illustration variant, format), so the
// presence of an asset can be checked on disk without any index:
//
//	<root>/native/hSD01/hSD01-001_0.webp
//	<root>/proxy/hSD01/hSD01-001_0.webp
//
// Asset state (missing, cached, stale, verified) is derived by comparing a
// Scan of the disk with the asset records stored on each catalog card.
package assets
