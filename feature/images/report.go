package images

import (
	"fmt"

	"cardsync/core/catalog"
	"cardsync/core/reconcile"
)

// Status is the result of one work item.
type Status string

const (
	StatusWritten     Status = "written"
	StatusConverted   Status = "converted"
	StatusFetchFailed Status = "fetch-failed"
	StatusWriteFailed Status = "write-failed"
	// StatusNotRun means dispatch stopped before the item started.
	StatusNotRun Status = "not-run"
)

// Succeeded reports whether the status carries a new asset record.
func (s Status) Succeeded() bool {
	return s == StatusWritten || s == StatusConverted
}

// Outcome is the result of one work item.
type Outcome struct {
	Item   reconcile.WorkItem
	Status Status
	// Record is the new asset record when the item succeeded.
	Record catalog.AssetRecord
	Err    error
}

// Report collects the outcomes of one Execute call in item order.
type Report struct {
	Outcomes []Outcome

	Written   int
	Converted int
	Failed    int
	NotRun    int
}

func (r *Report) tally() {
	r.Written, r.Converted, r.Failed, r.NotRun = 0, 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusWritten:
			r.Written++
		case StatusConverted:
			r.Converted++
		case StatusNotRun:
			r.NotRun++
		default:
			r.Failed++
		}
	}
}

// Failures returns the failed outcomes in item order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Err summarizes failed items, or returns nil when every item succeeded.
func (r *Report) Err() error {
	failures := r.Failures()
	if len(failures) == 0 {
		if r.NotRun > 0 {
			return fmt.Errorf("%d of %d assets were not processed", r.NotRun, len(r.Outcomes))
		}
		return nil
	}
	return fmt.Errorf("%d of %d assets failed: %w", len(failures), len(r.Outcomes), failures[0].Err)
}

// Commit applies the successful outcomes to cat in item order and returns the
// number of records updated. Failed items keep their previous record.
func Commit(cat *catalog.Catalog, r *Report) int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Status.Succeeded() {
			continue
		}
		card, ok := cat.Get(o.Item.Asset.Key)
		if !ok {
			continue
		}
		rec := o.Record
		rec.CardDigest = card.Digest()
		if prev, had := card.Assets[o.Item.Asset.Locale]; had && rec.LastModified == "" && prev.Source == rec.Source {
			rec.LastModified = prev.LastModified
		}
		if card.Assets == nil {
			card.Assets = map[catalog.Locale]catalog.AssetRecord{}
		}
		card.Assets[o.Item.Asset.Locale] = rec
		n++
	}
	return n
}
