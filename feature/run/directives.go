package run

import (
	"cardsync/core/catalog"
	"cardsync/core/reconcile"
)

// Directives are the per-run switches of a sync, usually set from flags.
type Directives struct {
	// Number and Expansion restrict the run to matching cards.
	Number    string
	Expansion string

	// Images runs the image pipeline after reconciliation.
	Images bool
	// Force refetches every in-filter image.
	Force bool
	// OptimizedPNG writes optimized PNG instead of WebP.
	OptimizedPNG bool
	// Zip packages the images of the selected expansions.
	Zip bool
	// Publish uploads the archives to the configured bucket.
	Publish bool
	// Clean ignores the previous catalog and refetches everything.
	Clean bool
	// SkipUpdate keeps the previous catalog metadata as is.
	SkipUpdate bool

	// Optional sources.
	Official  bool
	Sheet     bool
	Holodelta bool
	Yuyutei   bool

	// AssetsPath overrides the asset store root.
	AssetsPath string
	// ProxyPath is a directory of proxy images; empty disables proxies.
	ProxyPath string
	// Workers overrides the pipeline worker count when positive.
	Workers int
}

// Filter returns the card filter of the run.
func (d Directives) Filter() catalog.Filter {
	return catalog.Filter{Number: d.Number, Expansion: d.Expansion}
}

// Format returns the image format of the run.
func (d Directives) Format() catalog.Format {
	if d.OptimizedPNG {
		return catalog.FormatPNG
	}
	return catalog.FormatWebP
}

// planDirectives converts the run switches for the change detector.
func (d Directives) planDirectives(proxy reconcile.ProxyResolver) reconcile.Directives {
	return reconcile.Directives{
		Force:      d.Force,
		Clean:      d.Clean,
		SkipUpdate: d.SkipUpdate,
		Filter:     d.Filter(),
		Format:     d.Format(),
		Proxy:      proxy,
	}
}
