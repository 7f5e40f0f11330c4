// Package imaging verifies fetched images and encodes them to the output
// format of the asset store.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	// Register decoders for the formats card sites serve.
	_ "image/gif"
	_ "image/jpeg"

	"cardsync/core/catalog"

	"github.com/chai2010/webp"
)

// ErrUndecodable means the bytes are empty or not a supported image.
var ErrUndecodable = errors.New("image undecodable")

// DefaultQuality is the lossy WebP quality.
const DefaultQuality = 80

// Options selects the output encoding.
type Options struct {
	Format catalog.Format
	// Quality is the lossy WebP quality (0-100).
	Quality float32
	// Lossless selects lossless WebP.
	Lossless bool
}

// Decode verifies data is a non-empty, decodable image and returns it with
// the name of its source format.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty", ErrUndecodable)
	}
	img, kind, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", fmt.Errorf("%w: zero size", ErrUndecodable)
	}
	return img, kind, nil
}

// Encode writes img in the requested format.
func Encode(img image.Image, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	switch opts.Format {
	case catalog.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	case catalog.FormatWebP, "":
		q := opts.Quality
		if q <= 0 {
			q = DefaultQuality
		}
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: opts.Lossless, Quality: q}); err != nil {
			return nil, fmt.Errorf("failed to encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported output format %q", opts.Format)
	}
	return buf.Bytes(), nil
}

// Convert decodes data and re-encodes it with opts.
func Convert(data []byte, opts Options) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Encode(img, opts)
}
