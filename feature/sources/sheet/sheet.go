package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cardsync/core/catalog"
	"cardsync/core/reconcile"
	"cardsync/feature/sources"

	"go.uber.org/zap"
)

// Name is the provenance id of this source.
const Name = "sheet"

// Column headers read from the translation sheet. Matching ignores case and
// surrounding space; a header only has to start with the name.
const (
	ColumnNumber = "setcode"
	ColumnName   = "card name"
	ColumnType   = "type"
	ColumnText   = "text"
)

// ErrNoHeader means no row of the export names the required columns.
var ErrNoHeader = errors.New("sheet header not found")

// Adapter reads the CSV export of the fan translation spreadsheet. The sheet
// is keyed by card number only, so records apply to every variant.
type Adapter struct {
	location string
	client   *http.Client
	logger   *zap.Logger
}

// New creates an Adapter for the CSV at location, an http(s) URL or a local
// path. A nil client uses http.DefaultClient.
func New(location string, client *http.Client, logger *zap.Logger) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{location: location, client: client, logger: logger}
}

// Name returns the source id.
func (a *Adapter) Name() string { return Name }

// Collect downloads and parses the sheet.
func (a *Adapter) Collect(ctx context.Context, filter catalog.Filter) ([]reconcile.CardRecord, error) {
	if a.location == "" {
		return nil, fmt.Errorf("%w: no sheet location configured", reconcile.ErrSourceUnavailable)
	}

	body, err := a.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", reconcile.ErrSourceUnavailable, err)
	}
	defer body.Close()

	records, err := Parse(body, filter)
	if err != nil {
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: %v", reconcile.ErrSourceUnavailable, err)
		}
		return records, fmt.Errorf("%w: %v", reconcile.ErrPartialData, err)
	}
	a.logger.Debug("Translation sheet collected", zap.Int("records", len(records)))
	return records, nil
}

func (a *Adapter) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(a.location, "http://") && !strings.HasPrefix(a.location, "https://") {
		return os.Open(a.location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Parse reads CSV rows after the header row. Rows without a number or name
// are skipped; only the first row of a number is kept. A read error returns
// the records parsed before it.
func Parse(r io.Reader, filter catalog.Filter) ([]reconcile.CardRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		cols    map[string]int
		records []reconcile.CardRecord
		seen    = make(map[string]struct{})
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, fmt.Errorf("failed to read sheet: %w", err)
		}
		if cols == nil {
			cols = header(row)
			continue
		}

		number := cell(row, cols, ColumnNumber)
		jp, en := SplitName(cell(row, cols, ColumnName))
		if number == "" || jp == "" {
			continue
		}
		if _, dup := seen[number]; dup {
			continue
		}
		seen[number] = struct{}{}
		if !filter.Match(&catalog.Card{Key: catalog.Key{Number: number}}) {
			continue
		}

		records = append(records, reconcile.CardRecord{
			Number:  number,
			Variant: reconcile.AnyVariant,
			Attributes: catalog.Attributes{
				Name:     jp,
				NameEN:   en,
				CardType: sources.CardType(cell(row, cols, ColumnType)),
				TextEN:   cell(row, cols, ColumnText),
			},
		})
	}
	if cols == nil {
		return nil, ErrNoHeader
	}
	return records, nil
}

// header returns the column index of each known name, or nil when the row is
// not the header.
func header(row []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range row {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range []string{ColumnNumber, ColumnName, ColumnType, ColumnText} {
			if _, ok := cols[name]; !ok && strings.HasPrefix(h, name) {
				cols[name] = i
			}
		}
	}
	if _, ok := cols[ColumnNumber]; !ok {
		return nil
	}
	if _, ok := cols[ColumnName]; !ok {
		return nil
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// SplitName splits a "JP\n(EN)" cell. A cell without the English part is used
// for both languages. Line breaks inside the Japanese name become spaces.
func SplitName(s string) (jp, en string) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "\n("); i >= 0 {
		jp = s[:i]
		en = strings.TrimSuffix(strings.TrimPrefix(s[i+1:], "("), ")")
	} else {
		jp, en = s, s
	}
	return strings.TrimSpace(strings.ReplaceAll(jp, "\n", " ")), strings.TrimSpace(en)
}
