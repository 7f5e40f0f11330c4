package yuyutei

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cardsync/core/catalog"
	"cardsync/core/reconcile"
	"cardsync/core/utils"
	"cardsync/feature/sources"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Name is the provenance id of this source.
const Name = "yuyutei"

// erratumMarker tags listings of cards printed before an erratum.
const erratumMarker = "エラッタ前"

// Adapter scrapes the yuyu-tei single card listings for price references.
// Listings are grouped by rarity, so each record targets the variants of its
// number that carry that rarity.
type Adapter struct {
	base   string
	cfg    sources.ScrapeConfig
	logger *zap.Logger
}

// New creates an Adapter. base is the listing root (".../sell/hocg/s/").
func New(base string, cfg sources.ScrapeConfig, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{base: base, cfg: cfg, logger: logger}
}

// Name returns the source id.
func (a *Adapter) Name() string { return Name }

// Collect walks the search pages up to the last page named by the pagination.
func (a *Adapter) Collect(ctx context.Context, filter catalog.Filter) ([]reconcile.CardRecord, error) {
	var (
		records []reconcile.CardRecord
		seen    = make(map[string]struct{})
		last    = 1
		read    int
	)

	c := sources.NewCollector(ctx, a.cfg)
	c.OnHTML(".pagination li:nth-last-child(2) a", func(e *colly.HTMLElement) {
		if n, ok, err := utils.ToInt(e.Text); err == nil && ok && n > last {
			last = n
		}
	})
	c.OnHTML("#card-list3", func(list *colly.HTMLElement) {
		rarity := strings.TrimSpace(list.ChildText("h3 span"))
		list.ForEach(".card-product", func(_ int, e *colly.HTMLElement) {
			number := strings.TrimSpace(e.DOM.Find("span").First().Text())
			name := strings.TrimSpace(e.ChildText("h4"))
			href := e.ChildAttr("a", "href")
			if number == "" || href == "" || strings.Contains(name, erratumMarker) {
				return
			}
			read++
			key := number + "|" + rarity
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			if !filter.Match(&catalog.Card{Key: catalog.Key{Number: number}}) {
				return
			}
			records = append(records, reconcile.CardRecord{
				Number:      number,
				Variant:     reconcile.AnyVariant,
				MatchRarity: rarity,
				Attributes:  catalog.Attributes{PriceReference: e.Request.AbsoluteURL(href)},
			})
		})
	})

	var failure error
	for page := 1; page <= last && page <= a.cfg.Pages(); page++ {
		if err := ctx.Err(); err != nil {
			failure = err
			break
		}
		if err := c.Visit(a.pageURL(page)); err != nil {
			failure = fmt.Errorf("page %d: %w", page, err)
			break
		}
	}

	if failure != nil {
		if read == 0 {
			return nil, fmt.Errorf("%w: %v", reconcile.ErrSourceUnavailable, failure)
		}
		return records, fmt.Errorf("%w: %v", reconcile.ErrPartialData, failure)
	}
	a.logger.Debug("Price listings collected", zap.Int("pages", last), zap.Int("records", len(records)))
	return records, nil
}

func (a *Adapter) pageURL(page int) string {
	u, err := url.Parse(strings.TrimSuffix(a.base, "/") + "/search")
	if err != nil {
		return a.base
	}
	q := u.Query()
	q.Set("search_word", "")
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
