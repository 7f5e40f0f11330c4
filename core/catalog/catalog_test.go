package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(number string, variant int, name string) *Card {
	return &Card{Key: Key{Number: number, Variant: variant}, Attributes: Attributes{Name: name}}
}

func TestCatalog_PutPreservesOrder(t *testing.T) {
	c := New()
	c.Put(card("hSD01-002", 0, "B"))
	c.Put(card("hSD01-001", 0, "A"))
	c.Put(card("hSD01-001", 1, "A alt"))
	c.Put(card("hSD01-002", 0, "B2"))

	assert.Equal(t, []Key{
		{Number: "hSD01-002", Variant: 0},
		{Number: "hSD01-001", Variant: 0},
		{Number: "hSD01-001", Variant: 1},
	}, c.Keys())

	got, ok := c.Get(Key{Number: "hSD01-002"})
	require.True(t, ok)
	assert.Equal(t, "B2", got.Name)
	assert.Len(t, c.Variants("hSD01-001"), 2)
}

func TestCatalog_CloneIsDeep(t *testing.T) {
	c := New()
	orig := card("hSD01-001", 0, "A")
	orig.Provenance = map[string]string{FieldName: "decklog"}
	orig.Assets = map[Locale]AssetRecord{LocaleNative: {Path: "a.webp"}}
	c.Put(orig)

	cp := c.Clone()
	got, _ := cp.Get(orig.Key)
	got.Name = "changed"
	got.Provenance[FieldName] = "sheet"
	got.Assets[LocaleNative] = AssetRecord{Path: "b.webp"}

	assert.Equal(t, "A", orig.Name)
	assert.Equal(t, "decklog", orig.Provenance[FieldName])
	assert.Equal(t, "a.webp", orig.Assets[LocaleNative].Path)
}

func TestFilter_Match(t *testing.T) {
	c := card("hBP01-010", 0, "X")
	withExp := card("hYS01-001", 0, "Y")
	withExp.Expansion = "hYS01"

	tests := []struct {
		name   string
		filter Filter
		card   *Card
		want   bool
	}{
		{"Empty", Filter{}, c, true},
		{"Number", Filter{Number: "hBP01-010"}, c, true},
		{"OtherNumber", Filter{Number: "hBP01-011"}, c, false},
		{"ExpansionFromPrefix", Filter{Expansion: "hBP01"}, c, true},
		{"ExpansionField", Filter{Expansion: "hYS01"}, withExp, true},
		{"ExpansionMismatch", Filter{Expansion: "hSD01"}, c, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.card))
		})
	}
}

func TestSaveLoad_RoundTripIsByteStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")

	c := New()
	a := card("hSD01-001", 0, "ときのそら")
	a.Provenance = map[string]string{FieldName: "decklog", FieldRarity: "decklog"}
	a.Rarity = "RR"
	a.Assets = map[Locale]AssetRecord{LocaleNative: {Path: "hSD01/hSD01-001_0.webp", Format: FormatWebP, Source: "https://x/a.png", Hash: "abc"}}
	c.Put(a)
	c.Put(card("hSD01-001", 1, "ときのそら"))

	require.NoError(t, Save(path, c))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.Keys(), loaded.Keys())

	require.NoError(t, Save(path, loaded))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), "ときのそら")

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"NotJSON", "{"},
		{"WrongVersion", `{"version":9,"cards":[]}`},
		{"MissingNumber", `{"version":1,"cards":[{"variant":0}]}`},
		{"Duplicate", `{"version":1,"cards":[{"card_number":"a","variant":0},{"card_number":"a","variant":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cards.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrCatalogCorrupt)
		})
	}
}

func TestLoadPrevious_CleanIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, err := LoadPrevious(path, false)
	assert.ErrorIs(t, err, ErrCatalogCorrupt)

	c, err := LoadPrevious(path, true)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCard_ExpansionCode(t *testing.T) {
	assert.Equal(t, "hSD01", card("hSD01-001", 0, "").ExpansionCode())
	assert.Equal(t, "hPR", card("hPR", 0, "").ExpansionCode())

	c := card("hYS01-001", 0, "")
	c.Expansion = "hYS01-custom"
	assert.Equal(t, "hYS01-custom", c.ExpansionCode())
}
