package cmd

import (
	"cardsync/core/catalog"
	"cardsync/feature/run"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var packageDirectives run.Directives

// packageCmd zips the verified images of the saved catalog.
var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Package verified images into one archive per expansion",
	Long: `Writes <expansion>-images.zip for every selected expansion of the saved
catalog. Fails without writing if any selected image is not verified.`,
	Args: cobra.NoArgs,
	RunE: runPackage,
}

func init() {
	fs := packageCmd.Flags()
	bindFilterFlags(fs, &packageDirectives)
	fs.BoolVar(&packageDirectives.Publish, "publish", false, "Upload the archives to the configured bucket")

	RootCmd.AddCommand(packageCmd)
}

func runPackage(cmd *cobra.Command, args []string) error {
	cfg, l, err := setup()
	if err != nil {
		return err
	}
	defer l.Sync()

	d := packageDirectives
	r := run.New(cfg, l)
	cat, err := catalog.Load(r.CatalogPath(d))
	if err != nil {
		return err
	}

	archives, err := r.Package(cmd.Context(), d, cat)
	if err != nil {
		return err
	}
	for _, a := range archives {
		l.Info("Archive written", zap.String("expansion", a.Expansion), zap.String("path", a.Path), zap.Int("entries", a.Entries), zap.String("sha256", a.Hash))
	}

	if d.Publish {
		return r.Publish(cmd.Context(), d, archives)
	}
	return nil
}
