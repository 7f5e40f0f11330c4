package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cardsync/core/catalog"
)

// Store is the on-disk asset tree: one directory per locale, images named
// deterministically from (card number, variant, format).
type Store struct {
	root string
}

// NewStore returns a store rooted at root. The directory is created lazily.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the root directory of the store.
func (s *Store) Root() string {
	return s.root
}

// LocaleDir returns the directory holding every asset of a locale.
func (s *Store) LocaleDir(loc catalog.Locale) string {
	return filepath.Join(s.root, string(loc))
}

// RelPath returns the slash-separated path of an asset relative to its locale
// directory, e.g. "hSD01/hSD01-001_0.webp".
func RelPath(key catalog.Key, format catalog.Format) string {
	return path.Join(catalog.NumberPrefix(key.Number), fmt.Sprintf("%s_%d%s", key.Number, key.Variant, format.Ext()))
}

// Path returns the absolute location of rel inside a locale directory. It
// rejects paths escaping the locale directory.
func (s *Store) Path(loc catalog.Locale, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("path is required")
	}
	base := filepath.Clean(s.LocaleDir(loc))
	full := filepath.Clean(filepath.Join(base, filepath.FromSlash(rel)))
	if !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", rel)
	}
	return full, nil
}

// Write stores data at rel atomically and returns its content hash. A crash
// never leaves a truncated image at the final path.
func (s *Store) Write(loc catalog.Locale, rel string, data []byte) (string, error) {
	full, err := s.Path(loc, rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return Hash(data), nil
}

// Read returns the content of rel.
func (s *Store) Read(loc catalog.Locale, rel string) ([]byte, error) {
	full, err := s.Path(loc, rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Remove deletes rel from a locale directory.
func (s *Store) Remove(loc catalog.Locale, rel string) error {
	full, err := s.Path(loc, rel)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Scan hashes every file under the locale directories. Hidden files and
// directories (temp files, .git) are ignored.
func (s *Store) Scan(ctx context.Context, locales ...catalog.Locale) (*Inventory, error) {
	if len(locales) == 0 {
		locales = []catalog.Locale{catalog.LocaleNative, catalog.LocaleProxy}
	}
	inv := NewInventory()
	for _, loc := range locales {
		base := s.LocaleDir(loc)
		err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && p == base {
					return fs.SkipDir
				}
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if strings.HasPrefix(d.Name(), ".") && p != base {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", p, err)
			}
			rel, err := filepath.Rel(base, p)
			if err != nil {
				return err
			}
			inv.Add(loc, filepath.ToSlash(rel), Hash(data))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s assets: %w", loc, err)
		}
	}
	return inv, nil
}
