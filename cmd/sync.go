package cmd

import (
	"fmt"

	"cardsync/core/reconcile"
	"cardsync/feature/run"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncDirectives run.Directives

// syncCmd reconciles the catalog and, when asked, its images and archives.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the card catalog and synchronize images",
	Long: `Collects card records from the enabled sources, folds them into the
catalog by source priority and saves it.

Examples:
  # Metadata only
  cardsync sync

  # Metadata and images of one expansion, as optimized PNG
  cardsync sync -x hBP01 -i -o

  # Everything, then zip and upload the archives
  cardsync sync -i -z --publish`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	fs := syncCmd.Flags()
	bindFilterFlags(fs, &syncDirectives)
	bindSourceFlags(fs, &syncDirectives)
	fs.BoolVarP(&syncDirectives.Images, "images", "i", false, "Synchronize images after reconciliation")
	fs.BoolVarP(&syncDirectives.Zip, "zip", "z", false, "Package the images of each selected expansion")
	fs.BoolVar(&syncDirectives.Publish, "publish", false, "Upload the archives to the configured bucket (requires --zip)")
	fs.IntVar(&syncDirectives.Workers, "workers", 0, "Image worker count (overrides pipeline.workers)")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	d := syncDirectives
	if d.Clean && d.SkipUpdate {
		return fmt.Errorf("--clean and --skip-update cannot be combined")
	}
	if d.Publish && !d.Zip {
		return fmt.Errorf("--publish requires --zip")
	}
	if d.Zip && !d.Images {
		// Packaging requires verified assets, so images are synchronized first.
		d.Images = true
	}

	cfg, l, err := setup()
	if err != nil {
		return err
	}
	defer l.Sync()

	report, err := run.New(cfg, l).Sync(cmd.Context(), d)
	printSyncReport(l, report)
	return err
}

// printSyncReport logs the outcome of each stage that ran.
func printSyncReport(l *zap.Logger, r *run.Report) {
	if r == nil {
		return
	}
	if res := r.Reconcile; res != nil {
		for _, s := range res.Sources {
			fields := []zap.Field{
				zap.String("source", s.Name),
				zap.Int("priority", s.Priority),
				zap.Int("records", s.Records),
			}
			if s.Err != nil {
				l.Warn("Source report", append(fields, zap.Error(s.Err))...)
				continue
			}
			l.Info("Source report", fields...)
		}
		l.Info("Reconciliation report",
			zap.Int("cards", res.Catalog.Len()),
			zap.Int("newly_created", res.Count(reconcile.ChangeCreated)),
			zap.Int("metadata_changed", res.Count(reconcile.ChangeMetadata)),
			zap.Int("conflicts", len(res.Conflicts)),
		)
	}
	if img := r.Images; img != nil {
		l.Info("Image report",
			zap.Int("written", img.Written),
			zap.Int("converted", img.Converted),
			zap.Int("failed", img.Failed),
			zap.Int("not_run", img.NotRun),
		)
		for i, o := range img.Failures() {
			l.Warn("Image failed",
				zap.Int("n", i+1),
				zap.String("key", o.Item.Asset.Key.String()),
				zap.String("locale", string(o.Item.Asset.Locale)),
				zap.String("source", o.Item.Source),
				zap.String("status", string(o.Status)),
				zap.Error(o.Err))
		}
	}
	for _, a := range r.Archives {
		l.Info("Archive written", zap.String("expansion", a.Expansion), zap.String("path", a.Path), zap.Int("entries", a.Entries))
	}
}
