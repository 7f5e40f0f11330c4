package proxy

import (
	"os"
	"path/filepath"
	"testing"

	"cardsync/core/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, p string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("img"), 0o644))
}

func TestBuildAndResolve(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "hSD01-001_OSR.png"))
	touch(t, filepath.Join(root, "b", "hSD01-001_OSR.jpg"))
	touch(t, filepath.Join(root, "Blanks", "hSD01-002_C.png"))
	touch(t, filepath.Join(root, "x", "blank", "hSD01-003_C.png"))
	touch(t, filepath.Join(root, ".cache", "hSD01-004_C.png"))

	ix, err := Build(root)
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())

	card := &catalog.Card{Attributes: catalog.Attributes{
		ImageReference: "https://hololive-official-cardgame.com/wp-content/images/cardlist/hSD01/hSD01-001_OSR.png",
	}}
	p, ok := ix.Resolve(card)
	require.True(t, ok)
	// First in lexical walk order wins.
	assert.Equal(t, filepath.Join(root, "a", "hSD01-001_OSR.png"), p)

	_, ok = ix.Resolve(&catalog.Card{Attributes: catalog.Attributes{ImageReference: "hSD01-002_C.png"}})
	assert.False(t, ok)
	_, ok = ix.Resolve(&catalog.Card{})
	assert.False(t, ok)
}

func TestBuild_NotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	touch(t, file)

	_, err := Build(file)
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = Build(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "hSD01-001_OSR", Stem("https://x/y/hSD01-001_OSR.png?v=2"))
	assert.Equal(t, "hSD01-001_OSR", Stem("/srv/hSD01-001_OSR.webp"))
	assert.Equal(t, "", Stem(""))
}
