// Package proxy indexes a directory of English proxy images so cards can be
// matched to them by the file name of their native image.
package proxy

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"cardsync/core/catalog"
)

// ErrNotDirectory means the proxy root is not a directory.
var ErrNotDirectory = errors.New("proxy path is not a directory")

// Index maps an image file stem to the first proxy file carrying it.
type Index struct {
	root   string
	byStem map[string]string
}

// Build walks root in lexical order. Directories named "blank" or "blanks"
// (any case) and hidden entries are ignored.
func Build(root string) (*Index, error) {
	ix := &Index{root: root, byStem: make(map[string]string)}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return fmt.Errorf("%w: %s", ErrNotDirectory, root)
			}
			return err
		}
		if p == root {
			if !d.IsDir() {
				return fmt.Errorf("%w: %s", ErrNotDirectory, root)
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			switch strings.ToLower(name) {
			case "blank", "blanks":
				return fs.SkipDir
			}
			return nil
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if _, ok := ix.byStem[stem]; !ok {
			ix.byStem[stem] = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// Len returns the number of indexed stems.
func (ix *Index) Len() int {
	return len(ix.byStem)
}

// Resolve returns the proxy file matching the card's native image name.
func (ix *Index) Resolve(card *catalog.Card) (string, bool) {
	stem := Stem(card.ImageReference)
	if stem == "" {
		return "", false
	}
	p, ok := ix.byStem[stem]
	return p, ok
}

// Stem returns the file name of ref without extension, for URLs and paths.
func Stem(ref string) string {
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Path != "" {
		ref = u.Path
	}
	base := path.Base(filepath.ToSlash(ref))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
