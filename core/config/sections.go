package config

import (
	"path/filepath"
	"time"

	"cardsync/core/fetch"
	"cardsync/core/imaging"
)

// CatalogConfig locates the catalog file and the asset store.
type CatalogConfig struct {
	// Root is the asset store root; locale directories live below it.
	Root string `mapstructure:"root" default:"assets"`
	// File is the catalog file name, relative to Root unless absolute.
	File string `mapstructure:"file" default:"cards.json"`
	// Output is where archives are written.
	Output string `mapstructure:"output" default:"dist"`
}

// Path returns the catalog file path.
func (c CatalogConfig) Path() string {
	if filepath.IsAbs(c.File) {
		return c.File
	}
	return filepath.Join(c.Root, c.File)
}

// PipelineConfig tunes the image synchronization pipeline.
type PipelineConfig struct {
	// Workers is the size of the image worker pool.
	Workers int `mapstructure:"workers" default:"8"`
	// PerOrigin caps in-flight requests per host.
	PerOrigin int `mapstructure:"per_origin" default:"4"`
	// RequestsPerSecond limits request starts per host (0 = unlimited).
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"8"`
	// TimeoutSeconds bounds one image request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Retries is the number of extra attempts on transient failures.
	Retries int `mapstructure:"retries" default:"2"`
	// Referer is sent with image requests; some origins reject hotlinks.
	Referer string `mapstructure:"referer" default:"https://decklog.bushiroad.com/"`
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" default:"cardsync/1.0"`
	// WebPQuality is the lossy WebP quality.
	WebPQuality int `mapstructure:"webp_quality" default:"80"`
	// Lossless selects lossless WebP.
	Lossless bool `mapstructure:"lossless" default:"false"`
	// MaxWriteFailures is the number of consecutive write failures, with no
	// success in between, that aborts the run.
	MaxWriteFailures int `mapstructure:"max_write_failures" default:"5"`
	// FailureCacheSeconds is how long a 404/410 image is not requested again.
	FailureCacheSeconds int `mapstructure:"failure_cache_seconds" default:"600"`
	// MaxImageBytes caps one image download.
	MaxImageBytes int64 `mapstructure:"max_image_bytes" default:"20971520"`
}

// FetchConfig returns the fetcher settings.
func (p PipelineConfig) FetchConfig() fetch.Config {
	return fetch.Config{
		PerOrigin:         p.PerOrigin,
		RequestsPerSecond: p.RequestsPerSecond,
		Timeout:           time.Duration(p.TimeoutSeconds) * time.Second,
		Retries:           p.Retries,
		Referer:           p.Referer,
		UserAgent:         p.UserAgent,
		FailureTTL:        time.Duration(p.FailureCacheSeconds) * time.Second,
		MaxBytes:          p.MaxImageBytes,
	}
}

// ImagingOptions returns the encoder settings (format is chosen per run).
func (p PipelineConfig) ImagingOptions() imaging.Options {
	return imaging.Options{Quality: float32(p.WebPQuality), Lossless: p.Lossless}
}

// SourcesConfig locates the providers of card records.
type SourcesConfig struct {
	// DecklogURL is the Deck Log card search endpoint.
	DecklogURL string `mapstructure:"decklog_url" default:"https://decklog.bushiroad.com/system/app/api/search/9"`
	// DecklogReferer is sent with Deck Log API requests.
	DecklogReferer string `mapstructure:"decklog_referer" default:"https://decklog.bushiroad.com/"`
	// ImageBaseURL prefixes the image file names returned by Deck Log.
	ImageBaseURL string `mapstructure:"image_base_url" default:"https://hololive-official-cardgame.com/wp-content/images/cardlist/"`
	// OfficialURL is the official card list page.
	OfficialURL string `mapstructure:"official_url" default:"https://hololive-official-cardgame.com/cardlist/cardsearch"`
	// SheetURL is the CSV export of the translation spreadsheet.
	SheetURL string `mapstructure:"sheet_url" default:""`
	// YuyuteiURL is the price listing base URL.
	YuyuteiURL string `mapstructure:"yuyutei_url" default:"https://yuyu-tei.jp/sell/hocg/s/"`
	// TimeoutSeconds bounds one metadata request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxPages stops pagination of paged providers.
	MaxPages int `mapstructure:"max_pages" default:"200"`
}

// Timeout returns the metadata request timeout.
func (s SourcesConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}
