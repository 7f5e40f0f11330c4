package reconcile

import (
	"context"
	"sync"
	"time"

	"cardsync/core/assets"
	"cardsync/core/catalog"

	"golang.org/x/sync/singleflight"
)

// InventorySnapshot is one scan of the asset store.
type InventorySnapshot struct {
	Inventory *assets.Inventory

	// Built is the timestamp when this snapshot was scanned.
	Built time.Time

	// TTL is the time-to-live for this snapshot.
	TTL time.Duration
}

// IsExpired returns true if this snapshot has expired based on its TTL.
func (s *InventorySnapshot) IsExpired() bool {
	if s.TTL == 0 {
		return true
	}
	return time.Since(s.Built) > s.TTL
}

// InventoryCache serves store scans to concurrent readers, rescanning at most
// once per TTL.
type InventoryCache struct {
	store   *assets.Store
	locales []catalog.Locale
	ttl     time.Duration

	mu       sync.RWMutex
	snapshot *InventorySnapshot
	sf       singleflight.Group
}

// NewInventoryCache creates a cache over store. A zero ttl disables caching.
func NewInventoryCache(store *assets.Store, ttl time.Duration, locales ...catalog.Locale) *InventoryCache {
	if len(locales) == 0 {
		locales = []catalog.Locale{catalog.LocaleNative, catalog.LocaleProxy}
	}
	return &InventoryCache{store: store, locales: locales, ttl: ttl}
}

// Get returns a fresh snapshot, scanning the store when the current one has
// expired. Uses singleflight to prevent scan stampedes.
func (c *InventoryCache) Get(ctx context.Context) (*InventorySnapshot, error) {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap != nil && !snap.IsExpired() {
		return snap, nil
	}

	result, err, _ := c.sf.Do(c.store.Root(), func() (any, error) {
		c.mu.RLock()
		snap := c.snapshot
		c.mu.RUnlock()
		if snap != nil && !snap.IsExpired() {
			return snap, nil
		}

		inv, err := c.store.Scan(ctx, c.locales...)
		if err != nil {
			return nil, err
		}
		snap = &InventorySnapshot{Inventory: inv, Built: time.Now(), TTL: c.ttl}

		c.mu.Lock()
		c.snapshot = snap
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*InventorySnapshot), nil
}

// Invalidate drops the current snapshot.
func (c *InventoryCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}
