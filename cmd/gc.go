package cmd

import (
	"cardsync/core/catalog"
	"cardsync/feature/gc"
	"cardsync/feature/run"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	gcAssetsPath string
	gcDryRun     bool
)

// gcCmd removes store files that no catalog record references.
var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove images no catalog record references",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := setup()
		if err != nil {
			return err
		}
		defer l.Sync()

		d := run.Directives{AssetsPath: gcAssetsPath}
		r := run.New(cfg, l)
		cat, err := catalog.Load(r.CatalogPath(d))
		if err != nil {
			return err
		}

		report, err := gc.Collect(cmd.Context(), r.Store(d), cat, gcDryRun, l)
		if err != nil {
			return err
		}
		l.Info("Garbage collection report",
			zap.Int("orphans", len(report.Orphans)),
			zap.Int("removed", report.Removed),
			zap.Int("kept", report.Kept),
			zap.Bool("dry_run", gcDryRun))
		return nil
	},
}

func init() {
	gcCmd.Flags().StringVar(&gcAssetsPath, "assets-path", "", "Asset store root (overrides catalog.root)")
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "List orphans without removing them")

	RootCmd.AddCommand(gcCmd)
}
