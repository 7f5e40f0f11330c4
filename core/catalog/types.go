package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key identifies one canonical card: a card number and its illustration variant.
type Key struct {
	// Number is the stable cross-source card number (e.g. "hSD01-001").
	Number string `json:"card_number"`
	// Variant distinguishes alternate art of the same number.
	Variant int `json:"variant"`
}

// String returns the key as NUMBER#VARIANT.
func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.Number, k.Variant)
}

// Locale distinguishes original-language images from translated proxies.
type Locale string

const (
	// LocaleNative is the original-language card image.
	LocaleNative Locale = "native"
	// LocaleProxy is a fan-translation proxy image.
	LocaleProxy Locale = "proxy"
)

// Format is the on-disk encoding of an image asset.
type Format string

const (
	// FormatWebP is the default, compact output format.
	FormatWebP Format = "webp"
	// FormatPNG is the re-encoded, optimized original format.
	FormatPNG Format = "png"
)

// Ext returns the file extension, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Field names used for provenance tracking.
const (
	FieldExpansion      = "expansion"
	FieldName           = "name"
	FieldNameEN         = "name_en"
	FieldCardType       = "card_type"
	FieldBloomLevel     = "bloom_level"
	FieldBuzz           = "buzz"
	FieldLimited        = "limited"
	FieldMaxAmount      = "max_amount"
	FieldRarity         = "rarity"
	FieldText           = "text"
	FieldTextEN         = "text_en"
	FieldIllustrator    = "illustrator"
	FieldImageReference = "image_reference"
	FieldPriceReference = "price_reference"
)

// Attributes are the reconciled metadata of a card. Every field is a string so
// that emptiness is the only notion of absence.
type Attributes struct {
	Expansion  string `json:"expansion,omitempty"`
	Name       string `json:"name,omitempty"`
	NameEN     string `json:"name_en,omitempty"`
	CardType   string `json:"card_type,omitempty"`
	BloomLevel string `json:"bloom_level,omitempty"`
	// Buzz and Limited are "true" when set.
	Buzz    string `json:"buzz,omitempty"`
	Limited string `json:"limited,omitempty"`
	// MaxAmount is the deck copy limit, in decimal.
	MaxAmount      string `json:"max_amount,omitempty"`
	Rarity         string `json:"rarity,omitempty"`
	Text           string `json:"text,omitempty"`
	TextEN         string `json:"text_en,omitempty"`
	Illustrator    string `json:"illustrator,omitempty"`
	ImageReference string `json:"image_reference,omitempty"`
	PriceReference string `json:"price_reference,omitempty"`
}

// AttributeField gives generic access to one field of Attributes.
type AttributeField struct {
	Name string
	Get  func(*Attributes) string
	Set  func(*Attributes, string)
}

// Fields lists every attribute in a fixed order. Folding iterates this slice,
// never a map, so provenance resolution is deterministic.
var Fields = []AttributeField{
	{FieldExpansion, func(a *Attributes) string { return a.Expansion }, func(a *Attributes, v string) { a.Expansion = v }},
	{FieldName, func(a *Attributes) string { return a.Name }, func(a *Attributes, v string) { a.Name = v }},
	{FieldNameEN, func(a *Attributes) string { return a.NameEN }, func(a *Attributes, v string) { a.NameEN = v }},
	{FieldCardType, func(a *Attributes) string { return a.CardType }, func(a *Attributes, v string) { a.CardType = v }},
	{FieldBloomLevel, func(a *Attributes) string { return a.BloomLevel }, func(a *Attributes, v string) { a.BloomLevel = v }},
	{FieldBuzz, func(a *Attributes) string { return a.Buzz }, func(a *Attributes, v string) { a.Buzz = v }},
	{FieldLimited, func(a *Attributes) string { return a.Limited }, func(a *Attributes, v string) { a.Limited = v }},
	{FieldMaxAmount, func(a *Attributes) string { return a.MaxAmount }, func(a *Attributes, v string) { a.MaxAmount = v }},
	{FieldRarity, func(a *Attributes) string { return a.Rarity }, func(a *Attributes, v string) { a.Rarity = v }},
	{FieldText, func(a *Attributes) string { return a.Text }, func(a *Attributes, v string) { a.Text = v }},
	{FieldTextEN, func(a *Attributes) string { return a.TextEN }, func(a *Attributes, v string) { a.TextEN = v }},
	{FieldIllustrator, func(a *Attributes) string { return a.Illustrator }, func(a *Attributes, v string) { a.Illustrator = v }},
	{FieldImageReference, func(a *Attributes) string { return a.ImageReference }, func(a *Attributes, v string) { a.ImageReference = v }},
	{FieldPriceReference, func(a *Attributes) string { return a.PriceReference }, func(a *Attributes, v string) { a.PriceReference = v }},
}

// AssetRecord is the bookkeeping of the last successful write of one image.
type AssetRecord struct {
	// Path is relative to the locale directory of the asset store.
	Path string `json:"path"`
	// Format is the encoding of the file at Path.
	Format Format `json:"format"`
	// Source is the reference the image was produced from.
	Source string `json:"source"`
	// Hash is the hex SHA-256 of the written bytes.
	Hash string `json:"hash"`
	// LastModified is the remote Last-Modified header, if any.
	LastModified string `json:"last_modified,omitempty"`
	// CardDigest is the Digest of the card when the file was written. A
	// different current digest makes the file stale.
	CardDigest string `json:"card_digest,omitempty"`
}

// SameCard reports whether the record was written for the current attributes
// of card. Records without a digest predate digests and are trusted.
func (r AssetRecord) SameCard(card *Card) bool {
	return r.CardDigest == "" || r.CardDigest == card.Digest()
}

// Card is the canonical, merged record for one (number, variant).
type Card struct {
	Key
	Attributes

	// Provenance maps a field name to the id of the source owning its value.
	Provenance map[string]string `json:"provenance,omitempty"`

	// Assets holds the last written image per locale.
	Assets map[Locale]AssetRecord `json:"assets,omitempty"`
}

// ExpansionCode returns the expansion of the card, falling back to the card
// number prefix ("hSD01-001" -> "hSD01").
func (c *Card) ExpansionCode() string {
	if c.Expansion != "" {
		return c.Expansion
	}
	return NumberPrefix(c.Number)
}

// NumberPrefix returns the part of a card number before the first dash.
func NumberPrefix(number string) string {
	if i := strings.Index(number, "-"); i > 0 {
		return number[:i]
	}
	return number
}

// Digest returns the hex SHA-256 of the card attributes, in Fields order.
func (c *Card) Digest() string {
	h := sha256.New()
	for _, f := range Fields {
		fmt.Fprintf(h, "%s\x00%s\x00", f.Name, f.Get(&c.Attributes))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	out := *c
	if c.Provenance != nil {
		out.Provenance = make(map[string]string, len(c.Provenance))
		for k, v := range c.Provenance {
			out.Provenance[k] = v
		}
	}
	if c.Assets != nil {
		out.Assets = make(map[Locale]AssetRecord, len(c.Assets))
		for k, v := range c.Assets {
			out.Assets[k] = v
		}
	}
	return &out
}
