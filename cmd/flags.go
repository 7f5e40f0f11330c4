package cmd

import (
	"cardsync/feature/run"

	"github.com/spf13/pflag"
)

// bindFilterFlags binds the card filter and store location flags.
func bindFilterFlags(fs *pflag.FlagSet, d *run.Directives) {
	fs.StringVarP(&d.Number, "number", "n", "", "Only process this card number")
	fs.StringVarP(&d.Expansion, "expansion", "x", "", "Only process this expansion (e.g. hBP01)")
	fs.StringVar(&d.AssetsPath, "assets-path", "", "Asset store root (overrides catalog.root)")
	fs.StringVarP(&d.ProxyPath, "proxy-path", "p", "", "Directory of proxy images; enables the proxy locale")
	fs.BoolVarP(&d.OptimizedPNG, "optimized-png", "o", false, "Write optimized PNG instead of WebP")
}

// bindSourceFlags binds the switches of the reconciliation stage.
func bindSourceFlags(fs *pflag.FlagSet, d *run.Directives) {
	fs.BoolVarP(&d.Force, "force", "f", false, "Refetch every selected image")
	fs.BoolVarP(&d.Clean, "clean", "c", false, "Ignore the previous catalog and start over")
	fs.BoolVar(&d.SkipUpdate, "skip-update", false, "Keep the previous catalog metadata without querying sources")
	fs.BoolVar(&d.Official, "official", false, "Also collect from the official card list")
	fs.BoolVar(&d.Sheet, "sheet", false, "Also collect from the translation spreadsheet")
	fs.BoolVar(&d.Holodelta, "holodelta", false, "Also collect from the holoDelta card database")
	fs.BoolVar(&d.Yuyutei, "yuyutei", false, "Also collect price references from yuyu-tei")
}
