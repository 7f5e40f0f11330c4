package official

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cardsync/core/catalog"
	"cardsync/core/reconcile"
	"cardsync/feature/sources"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Name is the provenance id of this source.
const Name = "official"

const limitedLine = "LIMITED：ターンに１枚しか使えない。"

// Adapter scrapes the text view of the official card list. The list carries
// one entry per card number, so records apply to every variant.
type Adapter struct {
	url    string
	cfg    sources.ScrapeConfig
	logger *zap.Logger
}

// New creates an Adapter for the card list at listURL.
func New(listURL string, cfg sources.ScrapeConfig, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{url: listURL, cfg: cfg, logger: logger}
}

// Name returns the source id.
func (a *Adapter) Name() string { return Name }

// Collect reads pages until one lists no card.
func (a *Adapter) Collect(ctx context.Context, filter catalog.Filter) ([]reconcile.CardRecord, error) {
	var (
		records []reconcile.CardRecord
		seen    = make(map[string]struct{})
		found   int
	)

	c := sources.NewCollector(ctx, a.cfg)
	c.OnHTML("li a", func(e *colly.HTMLElement) {
		number := strings.TrimSpace(e.ChildText(".number"))
		if number == "" {
			return
		}
		found++
		if _, dup := seen[number]; dup {
			return
		}
		seen[number] = struct{}{}

		rec := reconcile.CardRecord{
			Number:     number,
			Variant:    reconcile.AnyVariant,
			Attributes: catalog.Attributes{Name: strings.TrimSpace(e.ChildText(".name"))},
		}
		e.ForEach(".info dl dt", func(_ int, dt *colly.HTMLElement) {
			value := strings.TrimSpace(dt.DOM.Next().Text())
			switch strings.TrimSpace(dt.Text) {
			case "カードタイプ":
				rec.CardType = sources.CardType(value)
			case "能力テキスト":
				rec.Text = strings.TrimSpace(strings.TrimSuffix(value, limitedLine))
			}
		})
		if !filter.Match(&catalog.Card{Key: catalog.Key{Number: number}}) {
			return
		}
		records = append(records, rec)
	})

	var failure error
	for page := 1; page <= a.cfg.Pages(); page++ {
		if err := ctx.Err(); err != nil {
			failure = err
			break
		}
		found = 0
		if err := c.Visit(a.pageURL(page)); err != nil {
			failure = fmt.Errorf("page %d: %w", page, err)
			break
		}
		if found == 0 {
			break
		}
		if page == a.cfg.Pages() {
			a.logger.Warn("Official card list page limit reached", zap.Int("max_pages", page))
		}
	}

	if failure != nil {
		if len(seen) == 0 {
			return nil, fmt.Errorf("%w: %v", reconcile.ErrSourceUnavailable, failure)
		}
		return records, fmt.Errorf("%w: %v", reconcile.ErrPartialData, failure)
	}
	return records, nil
}

func (a *Adapter) pageURL(page int) string {
	u, err := url.Parse(a.url)
	if err != nil {
		return a.url
	}
	q := u.Query()
	q.Set("view", "text")
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
