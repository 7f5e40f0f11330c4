package holodelta

import (
	"context"
	"fmt"

	"cardsync/core/catalog"
	"cardsync/core/database"
	"cardsync/core/reconcile"
	"cardsync/feature/sources"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Name is the provenance id of this source.
const Name = "holodelta"

// Table is the card table of the holoDelta database.
const Table = "cards"

// Columns are the columns the adapter reads.
var Columns = []string{"card_number", "card_type", "name", "text"}

// Row is one card of the holoDelta database.
type Row struct {
	CardNumber string `gorm:"column:card_number"`
	CardType   string `gorm:"column:card_type"`
	Name       string `gorm:"column:name"`
	Text       string `gorm:"column:text"`
}

// TableName overrides the table name used by gorm.
func (Row) TableName() string { return Table }

// Adapter reads the card database shipped with the holoDelta simulator. The
// database knows card numbers only, so records apply to every variant.
type Adapter struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates an Adapter over an open database.
func New(db *gorm.DB, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{db: db, logger: logger}
}

// Name returns the source id.
func (a *Adapter) Name() string { return Name }

// Collect checks the schema, then reads every matching row ordered by number.
func (a *Adapter) Collect(ctx context.Context, filter catalog.Filter) ([]reconcile.CardRecord, error) {
	if a.db == nil {
		return nil, fmt.Errorf("%w: no database", reconcile.ErrSourceUnavailable)
	}
	if err := database.RequireColumns(a.db, Table, Columns...); err != nil {
		return nil, fmt.Errorf("%w: %v", reconcile.ErrSourceUnavailable, err)
	}

	query := a.db.WithContext(ctx).Model(&Row{})
	if filter.Number != "" {
		query = query.Where("card_number = ?", filter.Number)
	}
	if filter.Expansion != "" {
		query = query.Where("card_number LIKE ?", filter.Expansion+"-%")
	}

	var rows []Row
	if err := query.Order("card_number").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", reconcile.ErrSourceUnavailable, Table, err)
	}

	records := make([]reconcile.CardRecord, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.CardNumber == "" {
			continue
		}
		if _, dup := seen[r.CardNumber]; dup {
			continue
		}
		seen[r.CardNumber] = struct{}{}
		records = append(records, reconcile.CardRecord{
			Number:  r.CardNumber,
			Variant: reconcile.AnyVariant,
			Attributes: catalog.Attributes{
				Name:     r.Name,
				CardType: sources.CardType(r.CardType),
				Text:     r.Text,
			},
		})
	}
	a.logger.Debug("holoDelta database read", zap.Int("records", len(records)))
	return records, nil
}
