package cards

import (
	"context"
	"time"

	"cardsync/core/assets"
	"cardsync/core/catalog"
	"cardsync/core/reconcile"

	"go.uber.org/zap"
)

// Service answers read-only queries over the saved catalog and the asset
// store.
type Service struct {
	store       *assets.Store
	catalogPath string
	format      catalog.Format
	proxy       reconcile.ProxyResolver
	inventory   *reconcile.InventoryCache
	logger      *zap.Logger
}

// NewService creates a Service. Store scans are cached for ttl.
func NewService(store *assets.Store, catalogPath string, format catalog.Format, proxy reconcile.ProxyResolver, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if format == "" {
		format = catalog.FormatWebP
	}
	return &Service{
		store:       store,
		catalogPath: catalogPath,
		format:      format,
		proxy:       proxy,
		inventory:   reconcile.NewInventoryCache(store, ttl),
		logger:      logger,
	}
}

// Catalog reads the catalog file. The file is replaced atomically by syncs,
// so a read never sees a partial catalog.
func (s *Service) Catalog() (*catalog.Catalog, error) {
	return catalog.Load(s.catalogPath)
}

// Cards returns the cards matching filter in catalog order.
func (s *Service) Cards(filter catalog.Filter) ([]*catalog.Card, error) {
	cat, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	out := make([]*catalog.Card, 0, cat.Len())
	for _, c := range cat.Cards() {
		if filter.Match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Plan returns what a sync with no metadata change would do now.
func (s *Service) Plan(ctx context.Context, filter catalog.Filter) (*reconcile.Plan, error) {
	cat, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	snap, err := s.inventory.Get(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.BuildPlan(cat, nil, snap.Inventory, reconcile.Directives{
		Filter: filter,
		Format: s.format,
		Proxy:  s.proxy,
	}), nil
}

// IntegrityReport counts the assets of the catalog per derived state.
type IntegrityReport struct {
	Cards   int                  `json:"cards"`
	States  map[assets.State]int `json:"states"`
	Broken  []assets.Asset       `json:"broken"`
	Orphans int                  `json:"orphans"`
	Scanned time.Time            `json:"scanned"`
}

// Integrity derives the state of every required asset and counts the files
// no record references.
func (s *Service) Integrity(ctx context.Context) (*IntegrityReport, error) {
	cat, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	snap, err := s.inventory.Get(ctx)
	if err != nil {
		return nil, err
	}
	inv := snap.Inventory

	report := &IntegrityReport{Cards: cat.Len(), States: map[assets.State]int{}, Scanned: snap.Built}
	referenced := map[catalog.Locale]map[string]struct{}{}
	check := func(card *catalog.Card, loc catalog.Locale, source string) {
		a := assets.Derive(card, loc, s.format, source, inv)
		report.States[a.State]++
		if a.State != assets.StateVerified {
			report.Broken = append(report.Broken, a)
		}
	}
	for _, card := range cat.Cards() {
		for loc, rec := range card.Assets {
			if referenced[loc] == nil {
				referenced[loc] = map[string]struct{}{}
			}
			referenced[loc][rec.Path] = struct{}{}
		}
		if card.ImageReference != "" {
			check(card, catalog.LocaleNative, card.ImageReference)
		}
		if s.proxy != nil {
			if ref, ok := s.proxy.Resolve(card); ok {
				check(card, catalog.LocaleProxy, ref)
			}
		}
	}
	for _, loc := range []catalog.Locale{catalog.LocaleNative, catalog.LocaleProxy} {
		for _, p := range inv.Paths(loc) {
			if _, ok := referenced[loc][p]; !ok {
				report.Orphans++
			}
		}
	}
	return report, nil
}

// Refresh drops the cached store scan.
func (s *Service) Refresh() {
	s.inventory.Invalidate()
	s.logger.Debug("Inventory cache invalidated")
}
