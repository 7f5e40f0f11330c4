package reconcile

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"cardsync/core/catalog"
	"cardsync/core/metrics"
	"cardsync/core/utils"

	"go.uber.org/zap"
)

// rank orders sources: lower priority first, then listing position.
type rank struct {
	priority int
	position int
}

func (r rank) stronger(o rank) bool {
	if r.priority != o.priority {
		return r.priority < o.priority
	}
	return r.position < o.position
}

// weakest ranks owners that are not configured in the current run.
var weakest = rank{priority: math.MaxInt, position: math.MaxInt}

type collected struct {
	records []CardRecord
	err     error
}

// Reconcile collects every configured source and folds their records into a
// copy of prev. prev is never modified.
//
// Sources are collected concurrently and folded in rank order, so the result
// depends only on the records and the ranks, not on arrival order.
func Reconcile(ctx context.Context, spec *Spec, prev *catalog.Catalog) (*Result, error) {
	logger := spec.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if prev == nil {
		prev = catalog.New()
	}

	results := collectAll(ctx, spec)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order := make([]int, len(spec.Sources))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return spec.Sources[order[a]].Priority < spec.Sources[order[b]].Priority
	})

	ranks := make(map[string]rank, len(spec.Sources))
	for pos, i := range order {
		name := spec.Sources[i].Source.Name()
		if _, dup := ranks[name]; !dup {
			ranks[name] = rank{priority: spec.Sources[i].Priority, position: pos}
		}
	}

	f := &folder{
		next:   prev.Clone(),
		ranks:  ranks,
		filter: spec.Filter,
		logger: logger,
	}

	res := &Result{Changes: make(map[catalog.Key]Change)}
	for _, i := range order {
		src := spec.Sources[i]
		name := src.Source.Name()
		out := results[i]
		report := SourceReport{Name: name, Priority: src.Priority, Records: len(out.records), Err: out.err}
		res.Sources = append(res.Sources, report)

		switch {
		case out.err == nil:
			metrics.ObserveSource(name, len(out.records), "")
		case errors.Is(out.err, ErrPartialData):
			metrics.ObserveSource(name, len(out.records), "partial")
			logger.Warn("Source returned partial data",
				zap.String("source", name),
				zap.Int("records", len(out.records)),
				zap.Error(out.err))
		default:
			metrics.ObserveSource(name, 0, "unavailable")
			logger.Warn("Source unavailable, skipping",
				zap.String("source", name),
				zap.Error(out.err))
			continue
		}

		for _, rec := range out.records {
			rec.SourceID = name
			f.fold(rec)
		}
	}

	res.Catalog = f.next
	res.Conflicts = f.conflicts
	for _, card := range f.next.Cards() {
		change := classify(prev, card)
		res.Changes[card.Key] = change
		metrics.ObserveChange(string(change))
	}

	logger.Info("Reconciliation complete",
		zap.Int("cards", f.next.Len()),
		zap.Int("created", res.Count(ChangeCreated)),
		zap.Int("metadata_changed", res.Count(ChangeMetadata)),
		zap.Int("conflicts", len(res.Conflicts)))

	return res, nil
}

// collectAll runs every source concurrently. Results are indexed like
// spec.Sources.
func collectAll(ctx context.Context, spec *Spec) []collected {
	results := make([]collected, len(spec.Sources))
	var wg sync.WaitGroup
	for i, src := range spec.Sources {
		wg.Add(1)
		go func(i int, s Source) {
			defer wg.Done()
			records, err := s.Collect(ctx, spec.Filter)
			if err != nil && !errors.Is(err, ErrPartialData) {
				records = nil
			}
			results[i] = collected{records: records, err: err}
		}(i, src.Source)
	}
	wg.Wait()
	return results
}

func classify(prev *catalog.Catalog, card *catalog.Card) Change {
	old, ok := prev.Get(card.Key)
	if !ok {
		return ChangeCreated
	}
	if old.Attributes != card.Attributes {
		return ChangeMetadata
	}
	return ChangeUnchanged
}

type folder struct {
	next      *catalog.Catalog
	ranks     map[string]rank
	filter    catalog.Filter
	logger    *zap.Logger
	conflicts []Conflict
}

func (f *folder) rankOf(source string) rank {
	if r, ok := f.ranks[source]; ok {
		return r
	}
	return weakest
}

func (f *folder) fold(rec CardRecord) {
	rec.Number = utils.NormalizeNumber(rec.Number)
	if rec.Number == "" {
		return
	}
	for _, field := range catalog.Fields {
		field.Set(&rec.Attributes, utils.NormalizeText(field.Get(&rec.Attributes)))
	}

	if rec.Variant == AnyVariant {
		targets := f.next.Variants(rec.Number)
		if rec.MatchRarity != "" {
			rarity := utils.NormalizeText(rec.MatchRarity)
			matched := targets[:0:0]
			for _, card := range targets {
				if card.Rarity == rarity {
					matched = append(matched, card)
				}
			}
			for _, card := range matched {
				if f.filter.Match(card) {
					f.apply(card, &rec)
				}
			}
			return
		}
		if len(targets) == 0 {
			card := f.admit(catalog.Key{Number: rec.Number, Variant: 0}, &rec)
			if card == nil {
				return
			}
			targets = []*catalog.Card{card}
		}
		for _, card := range targets {
			if f.filter.Match(card) {
				f.apply(card, &rec)
			}
		}
		return
	}

	card, ok := f.next.Get(catalog.Key{Number: rec.Number, Variant: rec.Variant})
	if !ok {
		card = f.admit(catalog.Key{Number: rec.Number, Variant: rec.Variant}, &rec)
		if card == nil {
			return
		}
	}
	if f.filter.Match(card) {
		f.apply(card, &rec)
	}
}

// admit appends a new card for key when the record matches the filter.
func (f *folder) admit(key catalog.Key, rec *CardRecord) *catalog.Card {
	probe := &catalog.Card{Key: key, Attributes: rec.Attributes}
	if !f.filter.Match(probe) {
		return nil
	}
	card := &catalog.Card{Key: key, Provenance: map[string]string{}}
	f.next.Put(card)
	return card
}

// apply adopts every non-empty field of rec whose source ranks at least as
// strong as the current owner. Empty incoming values never clear a field.
func (f *folder) apply(card *catalog.Card, rec *CardRecord) {
	if card.Provenance == nil {
		card.Provenance = map[string]string{}
	}
	incoming := f.rankOf(rec.SourceID)

	for _, field := range catalog.Fields {
		value := field.Get(&rec.Attributes)
		if value == "" {
			continue
		}
		current := field.Get(&card.Attributes)
		owner := card.Provenance[field.Name]

		if current == "" || owner == rec.SourceID || !f.rankOf(owner).stronger(incoming) {
			field.Set(&card.Attributes, value)
			card.Provenance[field.Name] = rec.SourceID
			continue
		}

		if current != value && f.rankOf(owner).priority == incoming.priority {
			f.conflict(card.Key, field.Name, current, owner, value, rec.SourceID)
		}
	}
}

func (f *folder) conflict(key catalog.Key, field, kept, keptBy, dropped, droppedBy string) {
	c := Conflict{Key: key, Field: field, Kept: kept, KeptBy: keptBy, Dropped: dropped, DroppedBy: droppedBy}
	f.conflicts = append(f.conflicts, c)
	metrics.ObserveConflict()
	f.logger.Warn("Conflicting data between equal-priority sources",
		zap.String("card", key.String()),
		zap.String("field", field),
		zap.String("kept_by", keptBy),
		zap.String("dropped_by", droppedBy),
		zap.Error(ErrConflictingData))
}
