package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// NormalizeText folds full-width ASCII to half-width, applies NFKC and trims
// surrounding whitespace. Card numbers and names arrive in mixed widths from
// the Japanese providers.
func NormalizeText(s string) string {
	if s == "" {
		return s
	}
	s = width.Fold.String(s)
	s = norm.NFKC.String(s)
	return strings.TrimSpace(s)
}

// NormalizeNumber normalizes a card number ("ｈＳＤ０１－００１ " -> "hSD01-001").
func NormalizeNumber(s string) string {
	s = NormalizeText(s)
	s = strings.ReplaceAll(s, "ー", "-")
	return strings.Join(strings.Fields(s), "")
}

// CollapseSpace replaces every run of whitespace with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
