package assets

import (
	"sort"

	"cardsync/core/catalog"
)

// State is the derived condition of an image asset.
type State string

const (
	// StateMissing means no file exists for the asset.
	StateMissing State = "missing"
	// StateCached means a file exists but nothing records where it came from.
	StateCached State = "cached"
	// StateStale means the file no longer matches its record or source.
	StateStale State = "stale"
	// StateVerified means the file matches its record and current source.
	StateVerified State = "verified"
)

// ID identifies an image asset.
type ID struct {
	Key    catalog.Key    `json:"key"`
	Locale catalog.Locale `json:"locale"`
	Format catalog.Format `json:"format"`
}

// Asset is an ImageAsset with its derived state.
type Asset struct {
	ID
	// Path is relative to the locale directory.
	Path  string
	Hash  string
	State State
}

// Inventory is the set of files found on disk, keyed by locale and relative
// path, with their content hashes.
type Inventory struct {
	files map[catalog.Locale]map[string]string
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{files: make(map[catalog.Locale]map[string]string)}
}

// Add records a file.
func (inv *Inventory) Add(loc catalog.Locale, rel, hash string) {
	m, ok := inv.files[loc]
	if !ok {
		m = make(map[string]string)
		inv.files[loc] = m
	}
	m[rel] = hash
}

// Hash returns the content hash of a file and whether it exists.
func (inv *Inventory) Hash(loc catalog.Locale, rel string) (string, bool) {
	h, ok := inv.files[loc][rel]
	return h, ok
}

// Paths returns the relative paths of a locale in lexical order.
func (inv *Inventory) Paths(loc catalog.Locale) []string {
	out := make([]string, 0, len(inv.files[loc]))
	for p := range inv.files[loc] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of files across all locales.
func (inv *Inventory) Len() int {
	n := 0
	for _, m := range inv.files {
		n += len(m)
	}
	return n
}

// Derive computes the state of the asset (card, loc, format) whose image is
// expected to come from source. State is derived from the disk and the
// card's asset record only, never accumulated across runs.
func Derive(card *catalog.Card, loc catalog.Locale, format catalog.Format, source string, inv *Inventory) Asset {
	a := Asset{
		ID:   ID{Key: card.Key, Locale: loc, Format: format},
		Path: RelPath(card.Key, format),
	}

	hash, onDisk := inv.Hash(loc, a.Path)
	if !onDisk {
		a.State = StateMissing
		return a
	}
	a.Hash = hash

	rec, ok := card.Assets[loc]
	switch {
	case !ok || rec.Path != a.Path || rec.Format != format:
		a.State = StateCached
	case rec.Hash != hash || rec.Source != source || !rec.SameCard(card):
		a.State = StateStale
	default:
		a.State = StateVerified
	}
	return a
}

// Convertible reports whether the card's recorded asset for loc is a verified
// file in another format produced from source. Such a file can be re-encoded
// without fetching.
func Convertible(card *catalog.Card, loc catalog.Locale, format catalog.Format, source string, inv *Inventory) (AssetRecordRef, bool) {
	rec, ok := card.Assets[loc]
	if !ok || rec.Format == format || rec.Source != source || !rec.SameCard(card) {
		return AssetRecordRef{}, false
	}
	hash, onDisk := inv.Hash(loc, rec.Path)
	if !onDisk || hash != rec.Hash {
		return AssetRecordRef{}, false
	}
	return AssetRecordRef{Locale: loc, Path: rec.Path, Format: rec.Format}, true
}

// AssetRecordRef points at an existing local file of the store.
type AssetRecordRef struct {
	Locale catalog.Locale `json:"locale"`
	Path   string         `json:"path"`
	Format catalog.Format `json:"format"`
}
