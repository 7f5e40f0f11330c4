package sources

import (
	"context"
	"time"

	"github.com/gocolly/colly/v2"
)

// ScrapeConfig configures the HTML collectors of page-scraping sources.
type ScrapeConfig struct {
	UserAgent string
	Timeout   time.Duration
	MaxPages  int
}

// NewCollector returns a synchronous collector bound to ctx. Robots rules are
// ignored because only public listing pages are requested, one at a time.
func NewCollector(ctx context.Context, cfg ScrapeConfig) *colly.Collector {
	c := colly.NewCollector(
		colly.Async(false),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	c.SetRequestTimeout(timeout)
	return c
}

// Pages returns the configured page limit or DefaultMaxPages.
func (c ScrapeConfig) Pages() int {
	if c.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return c.MaxPages
}
