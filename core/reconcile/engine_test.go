package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cardsync/core/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticSource(name string, records ...CardRecord) Source {
	return SourceFunc{ID: name, Fn: func(ctx context.Context, f catalog.Filter) ([]CardRecord, error) {
		return records, nil
	}}
}

func failingSource(name string, err error, records ...CardRecord) Source {
	return SourceFunc{ID: name, Fn: func(ctx context.Context, f catalog.Filter) ([]CardRecord, error) {
		return records, err
	}}
}

func rec(number string, variant int, attrs catalog.Attributes) CardRecord {
	return CardRecord{Number: number, Variant: variant, Attributes: attrs}
}

func mustGet(t *testing.T, c *catalog.Catalog, number string, variant int) *catalog.Card {
	t.Helper()
	card, ok := c.Get(catalog.Key{Number: number, Variant: variant})
	require.True(t, ok, "card %s#%d not found", number, variant)
	return card
}

func TestReconcile_PriorityAndBackfill(t *testing.T) {
	spec := &Spec{Sources: []Ranked{
		{Source: staticSource("sheet", rec("hSD01-001", AnyVariant, catalog.Attributes{Name: "Sora (sheet)", NameEN: "Tokino Sora"})), Priority: 4},
		{Source: staticSource("decklog", rec("hSD01-001", 0, catalog.Attributes{Name: "ときのそら", Rarity: "OSR", ImageReference: "https://img/hSD01-001.png"})), Priority: 1},
	}}

	res, err := Reconcile(context.Background(), spec, nil)
	require.NoError(t, err)

	card := mustGet(t, res.Catalog, "hSD01-001", 0)
	assert.Equal(t, "ときのそら", card.Name)
	assert.Equal(t, "Tokino Sora", card.NameEN)
	assert.Equal(t, "OSR", card.Rarity)
	assert.Equal(t, "decklog", card.Provenance[catalog.FieldName])
	assert.Equal(t, "sheet", card.Provenance[catalog.FieldNameEN])
	assert.Equal(t, ChangeCreated, res.Changes[card.Key])

	// Reports come out in rank order.
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "decklog", res.Sources[0].Name)
	assert.Equal(t, "sheet", res.Sources[1].Name)
}

func TestReconcile_EmptyValueNeverClears(t *testing.T) {
	prev := catalog.New()
	prev.Put(&catalog.Card{
		Key:        catalog.Key{Number: "hSD01-001"},
		Attributes: catalog.Attributes{Name: "ときのそら", Illustrator: "someone"},
		Provenance: map[string]string{catalog.FieldName: "decklog", catalog.FieldIllustrator: "official"},
	})
	spec := &Spec{Sources: []Ranked{
		{Source: staticSource("decklog", rec("hSD01-001", 0, catalog.Attributes{Name: "ときのそら"})), Priority: 1},
	}}

	res, err := Reconcile(context.Background(), spec, prev)
	require.NoError(t, err)

	card := mustGet(t, res.Catalog, "hSD01-001", 0)
	assert.Equal(t, "someone", card.Illustrator)
	assert.Equal(t, ChangeUnchanged, res.Changes[card.Key])
}

func TestReconcile_WeakerSourceCannotOverrideUnavailableStrongerOwner(t *testing.T) {
	prev := catalog.New()
	prev.Put(&catalog.Card{
		Key:        catalog.Key{Number: "hBP01-010"},
		Attributes: catalog.Attributes{Illustrator: "official name"},
		Provenance: map[string]string{catalog.FieldIllustrator: "official"},
	})
	spec := &Spec{Sources: []Ranked{
		{Source: failingSource("official", fmt.Errorf("%w: timeout", ErrSourceUnavailable)), Priority: 2},
		{Source: staticSource("sheet", rec("hBP01-010", AnyVariant, catalog.Attributes{Illustrator: "sheet name"})), Priority: 4},
	}}

	res, err := Reconcile(context.Background(), spec, prev)
	require.NoError(t, err)

	card := mustGet(t, res.Catalog, "hBP01-010", 0)
	assert.Equal(t, "official name", card.Illustrator)
	assert.Equal(t, "official", card.Provenance[catalog.FieldIllustrator])
	assert.True(t, res.Sources[0].Failed())
}

func TestReconcile_UnconfiguredOwnerRanksWeakest(t *testing.T) {
	prev := catalog.New()
	prev.Put(&catalog.Card{
		Key:        catalog.Key{Number: "hBP01-010"},
		Attributes: catalog.Attributes{Illustrator: "old"},
		Provenance: map[string]string{catalog.FieldIllustrator: "retired"},
	})
	spec := &Spec{Sources: []Ranked{
		{Source: staticSource("sheet", rec("hBP01-010", AnyVariant, catalog.Attributes{Illustrator: "new"})), Priority: 4},
	}}

	res, err := Reconcile(context.Background(), spec, prev)
	require.NoError(t, err)

	card := mustGet(t, res.Catalog, "hBP01-010", 0)
	assert.Equal(t, "new", card.Illustrator)
	assert.Equal(t, ChangeMetadata, res.Changes[card.Key])
}

func TestReconcile_VariantIsolation(t *testing.T) {
	spec := &Spec{Sources: []Ranked{
		{Source: staticSource("decklog",
			rec("hSD01-001", 0, catalog.Attributes{Rarity: "OSR", ImageReference: "a.png"}),
			rec("hSD01-001", 1, catalog.Attributes{Rarity: "SEC", ImageReference: "b.png"}),
		), Priority: 1},
		{Source: staticSource("sheet", rec("hSD01-001", AnyVariant, catalog.Attributes{NameEN: "Tokino Sora"})), Priority: 4},
	}}

	res, err := Reconcile(context.Background(), spec, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Catalog.Len())

	v0 := mustGet(t, res.Catalog, "hSD01-001", 0)
	v1 := mustGet(t, res.Catalog, "hSD01-001", 1)
	assert.Equal(t, "OSR", v0.Rarity)
	assert.Equal(t, "SEC", v1.Rarity)
	assert.Equal(t, "a.png", v0.ImageReference)
	assert.Equal(t, "b.png", v1.ImageReference)
	// Variant-agnostic records reach every variant.
	assert.Equal(t, "Tokino Sora", v0.NameEN)
	assert.Equal(t, "Tokino Sora", v1.NameEN)
}

func TestReconcile_AnyVariantAdmitsVariantZero(t *testing.T) {
	spec := &Spec{Sources: []Ranked{
		{Source: staticSource("sheet", rec("hYS01-001", AnyVariant, catalog.Attributes{NameEN: "White Cheer"})), Priority: 4},
	}}

	res, err := Reconcile(context.Background(), spec, nil)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Key{{Number: "hYS01-001", Variant: 0}}, res.Catalog.Keys())
}

func TestReconcile_PartialAndUnavailable(t *testing.T) {
	spec := &Spec{Sources: []Ranked{
		{Source: failingSource("decklog", fmt.Errorf("page 3: %w", ErrPartialData),
			rec("hSD01-001", 0, catalog.Attributes{Name: "A"})), Priority: 1},
		{Source: failingSource("official", fmt.Errorf("%w: dns", ErrSourceUnavailable),
			rec("hSD01-002", 0, catalog.Attributes{Name: "ignored"})), Priority: 2},
	}}

	res, err := Reconcile(context.Background(), spec, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Catalog.Len())
	mustGet(t, res.Catalog, "hSD01-001", 0)

	assert.False(t, res.Sources[0].Failed())
	assert.ErrorIs(t, res.Sources[0].Err, ErrPartialData)
	assert.True(t, res.Sources[1].Failed())
	assert.Equal(t, 0, res.Sources[1].Records)
}

func TestReconcile_EqualPriorityFirstListedWins(t *testing.T) {
	spec := &Spec{Sources: []Ranked{
		{Source: staticSource("first", rec("hSD01-001", 0, catalog.Attributes{Text: "one"})), Priority: 3},
		{Source: staticSource("second", rec("hSD01-001", 0, catalog.Attributes{Text: "two", Illustrator: "x"})), Priority: 3},
	}}

	res, err := Reconcile(context.Background(), spec, nil)
	require.NoError(t, err)

	card := mustGet(t, res.Catalog, "hSD01-001", 0)
	assert.Equal(t, "one", card.Text)
	assert.Equal(t, "x", card.Illustrator)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, Conflict{
		Key: card.Key, Field: catalog.FieldText,
		Kept: "one", KeptBy: "first",
		Dropped: "two", DroppedBy: "second",
	}, res.Conflicts[0])
}

func TestReconcile_Deterministic(t *testing.T) {
	slow := SourceFunc{ID: "decklog", Fn: func(ctx context.Context, f catalog.Filter) ([]CardRecord, error) {
		time.Sleep(20 * time.Millisecond)
		return []CardRecord{
			rec("hSD01-002", 0, catalog.Attributes{Name: "B"}),
			rec("hSD01-001", 0, catalog.Attributes{Name: "A"}),
		}, nil
	}}
	fast := staticSource("official", rec("hSD01-003", 0, catalog.Attributes{Name: "C"}), rec("hSD01-001", 0, catalog.Attributes{Name: "other"}))

	prev := catalog.New()
	prev.Put(&catalog.Card{Key: catalog.Key{Number: "hSD01-000"}, Attributes: catalog.Attributes{Name: "zero"}})
	before, err := catalog.Marshal(prev)
	require.NoError(t, err)

	var outputs [][]byte
	for i := 0; i < 3; i++ {
		spec := &Spec{Sources: []Ranked{{Source: fast, Priority: 2}, {Source: slow, Priority: 1}}}
		res, err := Reconcile(context.Background(), spec, prev)
		require.NoError(t, err)
		data, err := catalog.Marshal(res.Catalog)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])

	// Existing cards keep their position; new cards follow in rank order.
	res, err := Reconcile(context.Background(), &Spec{Sources: []Ranked{{Source: fast, Priority: 2}, {Source: slow, Priority: 1}}}, prev)
	require.NoError(t, err)
	numbers := []string{}
	for _, k := range res.Catalog.Keys() {
		numbers = append(numbers, k.Number)
	}
	assert.Equal(t, []string{"hSD01-000", "hSD01-002", "hSD01-001", "hSD01-003"}, numbers)

	after, err := catalog.Marshal(prev)
	require.NoError(t, err)
	assert.Equal(t, before, after, "previous catalog must not be modified")
}

func TestReconcile_FilterAndNormalization(t *testing.T) {
	spec := &Spec{
		Filter: catalog.Filter{Expansion: "hSD01"},
		Sources: []Ranked{
			{Source: staticSource("decklog",
				rec("ｈＳＤ０１－００１", 0, catalog.Attributes{Name: "  ときのそら "}),
				rec("hBP01-001", 0, catalog.Attributes{Name: "out of filter"}),
				rec("   ", 0, catalog.Attributes{Name: "no number"}),
			), Priority: 1},
		},
	}

	res, err := Reconcile(context.Background(), spec, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Catalog.Len())
	assert.Equal(t, "ときのそら", mustGet(t, res.Catalog, "hSD01-001", 0).Name)
}

func TestReconcile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	spec := &Spec{Sources: []Ranked{{Source: staticSource("decklog"), Priority: 1}}}

	_, err := Reconcile(ctx, spec, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconcile_MatchRarity(t *testing.T) {
	spec := &Spec{Sources: []Ranked{
		{Source: staticSource("decklog",
			rec("hBP01-001", 0, catalog.Attributes{Rarity: "OSR"}),
			rec("hBP01-001", 1, catalog.Attributes{Rarity: "OUR"}),
		), Priority: 1},
		{Source: staticSource("yuyutei",
			CardRecord{Number: "hBP01-001", Variant: AnyVariant, MatchRarity: "OUR", Attributes: catalog.Attributes{PriceReference: "https://yuyu-tei.jp/sell/hocg/card/hbp01/10001"}},
			CardRecord{Number: "hBP01-002", Variant: AnyVariant, MatchRarity: "C", Attributes: catalog.Attributes{PriceReference: "https://yuyu-tei.jp/sell/hocg/card/hbp01/10002"}},
		), Priority: 5},
	}}

	res, err := Reconcile(context.Background(), spec, nil)
	require.NoError(t, err)

	assert.Empty(t, mustGet(t, res.Catalog, "hBP01-001", 0).PriceReference)
	assert.Equal(t, "https://yuyu-tei.jp/sell/hocg/card/hbp01/10001", mustGet(t, res.Catalog, "hBP01-001", 1).PriceReference)
	// Rarity-scoped records never create cards.
	assert.Equal(t, 2, res.Catalog.Len())
}
