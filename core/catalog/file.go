package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCatalogCorrupt is returned when a persisted catalog cannot be read back.
var ErrCatalogCorrupt = errors.New("catalog corrupt")

// FileVersion is the version written to, and accepted from, catalog files.
const FileVersion = 1

type fileFormat struct {
	Version int     `json:"version"`
	Cards   []*Card `json:"cards"`
}

// Marshal encodes the catalog as indented JSON in catalog order.
func Marshal(c *Catalog) ([]byte, error) {
	doc := fileFormat{Version: FileVersion, Cards: c.Cards()}
	if doc.Cards == nil {
		doc.Cards = []*Card{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a catalog file. Duplicate keys or an unknown version
// yield ErrCatalogCorrupt.
func Unmarshal(data []byte) (*Catalog, error) {
	var doc fileFormat
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogCorrupt, err)
	}
	if doc.Version != FileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCatalogCorrupt, doc.Version)
	}

	c := New()
	for i, card := range doc.Cards {
		if card == nil || card.Number == "" {
			return nil, fmt.Errorf("%w: entry %d has no card number", ErrCatalogCorrupt, i)
		}
		if _, dup := c.Get(card.Key); dup {
			return nil, fmt.Errorf("%w: duplicate key %s", ErrCatalogCorrupt, card.Key)
		}
		c.Put(card)
	}
	return c, nil
}

// Load reads the catalog at path. A missing file is an empty catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCatalogCorrupt, err)
	}
	return Unmarshal(data)
}

// LoadPrevious returns the prior-run state. With clean the file is ignored
// entirely, so even a corrupt catalog does not stop the run.
func LoadPrevious(path string, clean bool) (*Catalog, error) {
	if clean {
		return New(), nil
	}
	return Load(path)
}

// Save writes the catalog atomically: a temp file in the destination
// directory is written, synced and renamed over path.
func Save(path string, c *Catalog) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp catalog: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp catalog: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}
