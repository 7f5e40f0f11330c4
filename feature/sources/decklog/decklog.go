package decklog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"cardsync/core/catalog"
	"cardsync/core/reconcile"
	"cardsync/core/utils"
	"cardsync/feature/sources"

	"go.uber.org/zap"
)

// Name is the provenance id of this source.
const Name = "decklog"

// DeckTypes are the search categories queried, in order.
var DeckTypes = []string{"N", "OSHI", "YELL"}

// Config holds adapter configuration.
type Config struct {
	URL          string
	Referer      string
	ImageBaseURL string
	MaxPages     int
}

// Adapter reads the Deck Log card search API.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates an Adapter. A nil client uses http.DefaultClient.
func New(cfg Config, client *http.Client, logger *zap.Logger) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = sources.DefaultMaxPages
	}
	return &Adapter{cfg: cfg, client: client, logger: logger}
}

// Name returns the source id.
func (a *Adapter) Name() string { return Name }

type searchParam struct {
	DeckParam1  string   `json:"deck_param1"`
	DeckType    string   `json:"deck_type"`
	Keyword     string   `json:"keyword"`
	KeywordType []string `json:"keyword_type"`
	Expansion   string   `json:"expansion"`
}

type searchRequest struct {
	Page  int         `json:"page"`
	Param searchParam `json:"param"`
}

// apiCard is one entry of a search page.
type apiCard struct {
	ManageID   flexInt `json:"manage_id"`
	CardNumber string  `json:"card_number"`
	CardKind   string  `json:"card_kind"`
	Name       string  `json:"name"`
	Rare       string  `json:"rare"`
	Img        string  `json:"img"`
	BloomLevel string  `json:"bloom_level"`
	Max        flexInt `json:"max"`
}

// flexInt decodes a JSON number, a numeric string or null.
type flexInt struct {
	Value int
	Valid bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	n, ok, err := utils.ToInt(data)
	if err != nil {
		return err
	}
	*f = flexInt{Value: n, Valid: ok}
	return nil
}

// Collect pages through every deck type. Illustrations of one number are
// ordered by manage id (cards without one first) and numbered from 0.
func (a *Adapter) Collect(ctx context.Context, filter catalog.Filter) ([]reconcile.CardRecord, error) {
	var (
		cards    []apiCard
		failures []error
	)

	for _, deckType := range DeckTypes {
		got, err := a.collectDeckType(ctx, deckType, filter)
		cards = append(cards, got...)
		if err != nil {
			failures = append(failures, fmt.Errorf("deck type %s: %w", deckType, err))
		}
	}
	failure := errors.Join(failures...)

	records := toRecords(cards, a.cfg.ImageBaseURL)
	if failure != nil {
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: %v", reconcile.ErrSourceUnavailable, failure)
		}
		return records, fmt.Errorf("%w: %v", reconcile.ErrPartialData, failure)
	}

	a.logger.Debug("Deck Log collected", zap.Int("records", len(records)))
	return records, nil
}

func (a *Adapter) collectDeckType(ctx context.Context, deckType string, filter catalog.Filter) ([]apiCard, error) {
	var out []apiCard
	for page := 1; page <= a.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		cards, err := a.search(ctx, searchRequest{
			Page: page,
			Param: searchParam{
				DeckParam1:  "S",
				DeckType:    deckType,
				Keyword:     filter.Number,
				KeywordType: []string{"no"},
				Expansion:   filter.Expansion,
			},
		})
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}
		if len(cards) == 0 {
			return out, nil
		}
		out = append(out, cards...)
	}
	a.logger.Warn("Deck Log page limit reached", zap.String("deck_type", deckType), zap.Int("max_pages", a.cfg.MaxPages))
	return out, nil
}

func (a *Adapter) search(ctx context.Context, body searchRequest) ([]apiCard, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.cfg.Referer != "" {
		req.Header.Set("Referer", a.cfg.Referer)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var cards []apiCard
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("failed to decode search page: %w", err)
	}
	return cards, nil
}

// toRecords groups cards by number in first-seen order and assigns variants.
// A manage id returned twice for the same number is kept once.
func toRecords(cards []apiCard, imageBase string) []reconcile.CardRecord {
	var order []string
	byNumber := make(map[string][]apiCard)
	for _, c := range cards {
		if c.CardNumber == "" {
			continue
		}
		if _, ok := byNumber[c.CardNumber]; !ok {
			order = append(order, c.CardNumber)
		}
		if c.ManageID.Valid && hasManageID(byNumber[c.CardNumber], c.ManageID.Value) {
			continue
		}
		byNumber[c.CardNumber] = append(byNumber[c.CardNumber], c)
	}

	var out []reconcile.CardRecord
	for _, number := range order {
		group := byNumber[number]
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i].ManageID, group[j].ManageID
			if a.Valid != b.Valid {
				return !a.Valid
			}
			return a.Value < b.Value
		})
		for variant, c := range group {
			cardType := sources.CardType(c.CardKind)
			out = append(out, reconcile.CardRecord{
				Number:  c.CardNumber,
				Variant: variant,
				Attributes: catalog.Attributes{
					Name:           c.Name,
					CardType:       cardType,
					BloomLevel:     sources.BloomLevel(c.BloomLevel),
					Buzz:           sources.Flag(sources.Buzz(c.CardKind)),
					Limited:        sources.Flag(sources.Limited(c.CardKind)),
					MaxAmount:      maxAmount(c.Max, cardType),
					Rarity:         c.Rare,
					ImageReference: imageURL(imageBase, c.Img),
				},
			})
		}
	}
	return out
}

// maxAmount renders the copy limit. An oshi is never allowed more than one.
func maxAmount(limit flexInt, cardType string) string {
	if !limit.Valid {
		return ""
	}
	n := limit.Value
	if cardType == sources.TypeOshi {
		n = min(n, 1)
	}
	return strconv.Itoa(n)
}

func hasManageID(group []apiCard, id int) bool {
	for _, c := range group {
		if c.ManageID.Valid && c.ManageID.Value == id {
			return true
		}
	}
	return false
}

func imageURL(base, img string) string {
	if img == "" || strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return img
	}
	if base == "" {
		return img
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(img, "/")
}
