package packager

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"cardsync/core/assets"
	"cardsync/core/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proxyMap map[string]string

func (m proxyMap) Resolve(card *catalog.Card) (string, bool) {
	ref, ok := m[card.Number]
	return ref, ok
}

// addCard puts a card whose native (and optional proxy) image is on disk and
// recorded.
func addCard(t *testing.T, store *assets.Store, cat *catalog.Catalog, number string, proxyRef string) *catalog.Card {
	t.Helper()
	card := &catalog.Card{
		Key:        catalog.Key{Number: number},
		Attributes: catalog.Attributes{ImageReference: "https://img/" + number + ".png"},
		Assets:     map[catalog.Locale]catalog.AssetRecord{},
	}
	record := func(loc catalog.Locale, source string) {
		rel := assets.RelPath(card.Key, catalog.FormatWebP)
		hash, err := store.Write(loc, rel, []byte(number+string(loc)))
		require.NoError(t, err)
		card.Assets[loc] = catalog.AssetRecord{Path: rel, Format: catalog.FormatWebP, Source: source, Hash: hash}
	}
	record(catalog.LocaleNative, card.ImageReference)
	if proxyRef != "" {
		record(catalog.LocaleProxy, proxyRef)
	}
	cat.Put(card)
	return card
}

func entries(t *testing.T, file string) []string {
	t.Helper()
	r, err := zip.OpenReader(file)
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		assert.True(t, f.Modified.Equal(ModTime), f.Name)
		names = append(names, f.Name)
	}
	return names
}

func TestPackage_OneArchivePerExpansion(t *testing.T) {
	store := assets.NewStore(t.TempDir())
	cat := catalog.New()
	addCard(t, store, cat, "hSD01-002", "")
	addCard(t, store, cat, "hBP01-001", "")
	addCard(t, store, cat, "hSD01-001", "/proxies/hSD01-001.png")

	out := t.TempDir()
	p := New(store, nil)
	opts := Options{Output: out, Proxy: proxyMap{"hSD01-001": "/proxies/hSD01-001.png"}}

	archives, err := p.Package(context.Background(), cat, opts)
	require.NoError(t, err)
	require.Len(t, archives, 2)

	assert.Equal(t, "hSD01", archives[0].Expansion)
	assert.Equal(t, filepath.Join(out, "hsd01-images.zip"), archives[0].Path)
	assert.Equal(t, 3, archives[0].Entries)
	assert.Equal(t, []string{
		"native/hSD01/hSD01-002_0.webp",
		"native/hSD01/hSD01-001_0.webp",
		"proxy/hSD01/hSD01-001_0.webp",
	}, entries(t, archives[0].Path))
	assert.Equal(t, "hbp01-images.zip", filepath.Base(archives[1].Path))

	// Same inputs, same bytes.
	again, err := p.Package(context.Background(), cat, opts)
	require.NoError(t, err)
	assert.Equal(t, archives[0].Hash, again[0].Hash)
	assert.Equal(t, archives[1].Hash, again[1].Hash)
}

func TestPackage_SelectedExpansions(t *testing.T) {
	store := assets.NewStore(t.TempDir())
	cat := catalog.New()
	addCard(t, store, cat, "hSD01-001", "")
	addCard(t, store, cat, "hBP01-001", "")

	archives, err := New(store, nil).Package(context.Background(), cat, Options{Output: t.TempDir(), Expansions: []string{"hBP01"}})
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, "hBP01", archives[0].Expansion)
	assert.Equal(t, []string{"native/hBP01/hBP01-001_0.webp"}, entries(t, archives[0].Path))
}

func TestPackage_FailsFastOnUnverified(t *testing.T) {
	store := assets.NewStore(t.TempDir())
	cat := catalog.New()
	addCard(t, store, cat, "hSD01-001", "")
	tampered := addCard(t, store, cat, "hSD01-002", "")
	_, err := store.Write(catalog.LocaleNative, tampered.Assets[catalog.LocaleNative].Path, []byte("other"))
	require.NoError(t, err)
	cat.Put(&catalog.Card{Key: catalog.Key{Number: "hSD01-003"}, Attributes: catalog.Attributes{ImageReference: "https://img/3.png"}})

	out := filepath.Join(t.TempDir(), "dist")
	_, err = New(store, nil).Package(context.Background(), cat, Options{Output: out})
	require.ErrorIs(t, err, ErrAssetsNotVerified)

	var nv *NotVerifiedError
	require.ErrorAs(t, err, &nv)
	require.Len(t, nv.Assets, 2)
	assert.Equal(t, "hSD01-002", nv.Assets[0].Key.Number)
	assert.Equal(t, assets.StateStale, nv.Assets[0].State)
	assert.Equal(t, "hSD01-003", nv.Assets[1].Key.Number)
	assert.Equal(t, assets.StateMissing, nv.Assets[1].State)
	assert.Contains(t, err.Error(), "native/hSD01-003#0 (missing)")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "hsd01-images.zip", ArchiveName("hSD01"))
	assert.Equal(t, "hpr-images.zip", ArchiveName("hPR"))
}
