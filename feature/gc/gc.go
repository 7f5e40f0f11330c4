// Package gc removes image files that no catalog record references.
//
// Collection is only ever explicit (the gc command); a sync run never deletes
// files.
package gc

import (
	"context"
	"fmt"
	"path"

	"cardsync/core/assets"
	"cardsync/core/catalog"

	"go.uber.org/zap"
)

// Report lists what a collection found.
type Report struct {
	// Orphans are "<locale>/<path>" names of unreferenced files, sorted.
	Orphans []string `json:"orphans"`
	// Removed counts deleted orphans; zero on a dry run.
	Removed int `json:"removed"`
	// Kept counts referenced files.
	Kept int `json:"kept"`
}

// Collect scans the store and removes every file not named by an asset record
// of cat. With dryRun nothing is deleted.
func Collect(ctx context.Context, store *assets.Store, cat *catalog.Catalog, dryRun bool, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	referenced := make(map[catalog.Locale]map[string]struct{})
	for _, card := range cat.Cards() {
		for loc, rec := range card.Assets {
			if referenced[loc] == nil {
				referenced[loc] = make(map[string]struct{})
			}
			referenced[loc][rec.Path] = struct{}{}
		}
	}

	locales := []catalog.Locale{catalog.LocaleNative, catalog.LocaleProxy}
	inv, err := store.Scan(ctx, locales...)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, loc := range locales {
		for _, rel := range inv.Paths(loc) {
			if _, ok := referenced[loc][rel]; ok {
				report.Kept++
				continue
			}
			name := path.Join(string(loc), rel)
			report.Orphans = append(report.Orphans, name)
			if dryRun {
				logger.Info("Orphan found", zap.String("file", name))
				continue
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := store.Remove(loc, rel); err != nil {
				return report, fmt.Errorf("failed to remove %s: %w", name, err)
			}
			report.Removed++
			logger.Info("Orphan removed", zap.String("file", name))
		}
	}
	return report, nil
}
