package packager

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cardsync/core/assets"
	"cardsync/core/catalog"
	"cardsync/core/metrics"
	"cardsync/core/reconcile"

	"go.uber.org/zap"
)

// ErrAssetsNotVerified means a selected asset is missing or does not match
// its record. No archive is written in that case.
var ErrAssetsNotVerified = errors.New("assets not verified")

// ArchiveSuffix ends the name of every archive.
const ArchiveSuffix = "-images.zip"

// ModTime is stamped on every archive entry so equal inputs give equal bytes.
var ModTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// NotVerifiedError lists the assets that blocked packaging.
type NotVerifiedError struct {
	Assets []assets.Asset
}

func (e *NotVerifiedError) Error() string {
	names := make([]string, 0, len(e.Assets))
	for _, a := range e.Assets {
		names = append(names, fmt.Sprintf("%s/%s (%s)", a.Locale, a.Key, a.State))
	}
	return fmt.Sprintf("%v: %d asset(s): %s", ErrAssetsNotVerified, len(e.Assets), strings.Join(names, ", "))
}

func (e *NotVerifiedError) Unwrap() error { return ErrAssetsNotVerified }

// Options select what is packaged.
type Options struct {
	// Expansions lists the expansions to package, in output order. Empty means
	// every expansion with a selected card, in catalog order.
	Expansions []string
	// Filter further restricts the cards.
	Filter catalog.Filter
	// Format is the image format expected on disk.
	Format catalog.Format
	// Proxy adds proxy images of the cards it resolves.
	Proxy reconcile.ProxyResolver
	// Output is the directory archives are written to.
	Output string
}

// Archive describes one written archive.
type Archive struct {
	Expansion string `json:"expansion"`
	Path      string `json:"path"`
	Entries   int    `json:"entries"`
	Hash      string `json:"hash"`
}

// Packager bundles verified assets into one zip per expansion.
type Packager struct {
	store  *assets.Store
	logger *zap.Logger
}

// New creates a Packager over store.
func New(store *assets.Store, logger *zap.Logger) *Packager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Packager{store: store, logger: logger}
}

type group struct {
	expansion string
	assets    []assets.Asset
}

// ArchiveName returns the file name of an expansion's archive.
func ArchiveName(expansion string) string {
	return strings.ToLower(expansion) + ArchiveSuffix
}

// Package checks every selected asset, then writes the archives. It fails
// before writing anything when one asset is not verified.
func (p *Packager) Package(ctx context.Context, cat *catalog.Catalog, opts Options) ([]Archive, error) {
	format := opts.Format
	if format == "" {
		format = catalog.FormatWebP
	}

	inv, err := p.store.Scan(ctx)
	if err != nil {
		return nil, err
	}

	groups, unverified := p.selectAssets(cat, inv, format, opts)
	if len(unverified) > 0 {
		metrics.ObservePackage("blocked")
		return nil, &NotVerifiedError{Assets: unverified}
	}

	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	archives := make([]Archive, 0, len(groups))
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return archives, err
		}
		if len(g.assets) == 0 {
			p.logger.Warn("No assets to package", zap.String("expansion", g.expansion))
			continue
		}
		a, err := p.write(g, opts.Output)
		if err != nil {
			metrics.ObservePackage("failed")
			return archives, err
		}
		metrics.ObservePackage("written")
		p.logger.Info("Archive written",
			zap.String("expansion", a.Expansion),
			zap.String("path", a.Path),
			zap.Int("entries", a.Entries))
		archives = append(archives, a)
	}
	return archives, nil
}

// selectAssets groups the required assets by expansion in catalog order and
// collects every one that is not verified.
func (p *Packager) selectAssets(cat *catalog.Catalog, inv *assets.Inventory, format catalog.Format, opts Options) ([]*group, []assets.Asset) {
	var (
		groups     []*group
		byExp      = make(map[string]*group)
		unverified []assets.Asset
	)
	for _, exp := range opts.Expansions {
		if _, ok := byExp[exp]; !ok {
			g := &group{expansion: exp}
			byExp[exp] = g
			groups = append(groups, g)
		}
	}

	for _, card := range cat.Cards() {
		if !opts.Filter.Match(card) {
			continue
		}
		g, ok := byExp[card.ExpansionCode()]
		if !ok {
			if len(opts.Expansions) > 0 {
				continue
			}
			g = &group{expansion: card.ExpansionCode()}
			byExp[g.expansion] = g
			groups = append(groups, g)
		}

		if card.ImageReference != "" {
			a := assets.Derive(card, catalog.LocaleNative, format, card.ImageReference, inv)
			g.assets = append(g.assets, a)
			if a.State != assets.StateVerified {
				unverified = append(unverified, a)
			}
		}
		if opts.Proxy != nil {
			if ref, ok := opts.Proxy.Resolve(card); ok {
				a := assets.Derive(card, catalog.LocaleProxy, format, ref, inv)
				g.assets = append(g.assets, a)
				if a.State != assets.StateVerified {
					unverified = append(unverified, a)
				}
			}
		}
	}
	return groups, unverified
}

// write builds the archive in a temp file and renames it into place.
func (p *Packager) write(g *group, output string) (Archive, error) {
	dest := filepath.Join(output, ArchiveName(g.expansion))
	tmp, err := os.CreateTemp(output, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return Archive{}, fmt.Errorf("failed to create archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	for _, a := range g.assets {
		if err := p.addEntry(zw, a); err != nil {
			zw.Close()
			tmp.Close()
			return Archive{}, err
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return Archive{}, fmt.Errorf("failed to finish archive %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return Archive{}, fmt.Errorf("failed to close archive %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return Archive{}, fmt.Errorf("failed to move archive %s: %w", dest, err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		return Archive{}, err
	}
	return Archive{Expansion: g.expansion, Path: dest, Entries: len(g.assets), Hash: assets.Hash(data)}, nil
}

// addEntry stores one image uncompressed; image formats are already
// compressed.
func (p *Packager) addEntry(zw *zip.Writer, a assets.Asset) error {
	full, err := p.store.Path(a.Locale, a.Path)
	if err != nil {
		return err
	}
	f, err := os.Open(full)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", full, err)
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     path.Join(string(a.Locale), a.Path),
		Method:   zip.Store,
		Modified: ModTime,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", a.Path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to copy %s: %w", a.Path, err)
	}
	return nil
}
