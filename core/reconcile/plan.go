package reconcile

import (
	"cardsync/core/assets"
	"cardsync/core/catalog"
	"cardsync/core/metrics"
)

// Action is what the image pipeline must do for one asset.
type Action string

const (
	// ActionSkip means the asset is verified and its card unchanged.
	ActionSkip Action = "skip"
	// ActionRefetch means the image must be fetched from its reference.
	ActionRefetch Action = "refetch"
	// ActionConvert means a verified local file in another format can be
	// re-encoded without fetching.
	ActionConvert Action = "convert-only"
)

// ProxyResolver locates the proxy image of a card, if any.
type ProxyResolver interface {
	Resolve(card *catalog.Card) (string, bool)
}

// Directives are the run options that influence planning.
type Directives struct {
	// Force refetches every required asset.
	Force bool
	// Clean means the previous state was discarded; every asset is refetched.
	Clean bool
	// SkipUpdate means the catalog was not refreshed; every card counts as
	// unchanged.
	SkipUpdate bool
	// Filter restricts the plan to matching cards.
	Filter catalog.Filter
	// Format is the target encoding.
	Format catalog.Format
	// Proxy resolves proxy images. Nil disables the proxy locale.
	Proxy ProxyResolver
}

// WorkItem is one planned unit of image work.
type WorkItem struct {
	Asset  assets.ID    `json:"asset" yaml:"asset"`
	Action Action       `json:"action" yaml:"action"`
	Reason string       `json:"reason" yaml:"reason"`
	State  assets.State `json:"state" yaml:"state"`
	// Source is the image reference (URL or local path).
	Source string `json:"source" yaml:"source"`
	// Path is the target path relative to the locale directory.
	Path string `json:"path" yaml:"path"`
	// From is the local file to re-encode for ActionConvert.
	From *assets.AssetRecordRef `json:"from,omitempty" yaml:"from,omitempty"`
}

// PlanSummary counts items per action.
type PlanSummary struct {
	Cards   int `json:"cards" yaml:"cards"`
	Total   int `json:"total" yaml:"total"`
	Skip    int `json:"skip" yaml:"skip"`
	Refetch int `json:"refetch" yaml:"refetch"`
	Convert int `json:"convert_only" yaml:"convert_only"`
}

// Plan is the ordered work plan: catalog order, native before proxy.
type Plan struct {
	Items   []WorkItem  `json:"items" yaml:"items"`
	Summary PlanSummary `json:"summary" yaml:"summary"`
}

// Pending returns the items that are not skipped, in plan order.
func (p *Plan) Pending() []WorkItem {
	out := make([]WorkItem, 0, p.Summary.Refetch+p.Summary.Convert)
	for _, it := range p.Items {
		if it.Action != ActionSkip {
			out = append(out, it)
		}
	}
	return out
}

// BuildPlan classifies every required asset of the in-filter cards of cat.
// changes comes from Reconcile; cards absent from it count as unchanged.
func BuildPlan(cat *catalog.Catalog, changes map[catalog.Key]Change, inv *assets.Inventory, d Directives) *Plan {
	if inv == nil {
		inv = assets.NewInventory()
	}
	format := d.Format
	if format == "" {
		format = catalog.FormatWebP
	}

	plan := &Plan{}
	for _, card := range cat.Cards() {
		if !d.Filter.Match(card) {
			continue
		}
		plan.Summary.Cards++

		change := ChangeUnchanged
		if c, ok := changes[card.Key]; ok && !d.SkipUpdate {
			change = c
		}

		if card.ImageReference != "" {
			plan.add(classifyAsset(card, catalog.LocaleNative, format, card.ImageReference, change, inv, d))
		}
		if d.Proxy != nil {
			if ref, ok := d.Proxy.Resolve(card); ok {
				plan.add(classifyAsset(card, catalog.LocaleProxy, format, ref, change, inv, d))
			}
		}
	}
	return plan
}

func (p *Plan) add(it WorkItem) {
	p.Items = append(p.Items, it)
	p.Summary.Total++
	switch it.Action {
	case ActionSkip:
		p.Summary.Skip++
	case ActionRefetch:
		p.Summary.Refetch++
	case ActionConvert:
		p.Summary.Convert++
	}
	metrics.ObservePlanItem(string(it.Action))
}

func classifyAsset(card *catalog.Card, loc catalog.Locale, format catalog.Format, source string, change Change, inv *assets.Inventory, d Directives) WorkItem {
	a := assets.Derive(card, loc, format, source, inv)
	it := WorkItem{Asset: a.ID, State: a.State, Source: source, Path: a.Path}

	switch {
	case d.Clean:
		it.Action, it.Reason = ActionRefetch, "clean"
	case d.Force:
		it.Action, it.Reason = ActionRefetch, "forced"
	case change != ChangeUnchanged:
		it.Action, it.Reason = ActionRefetch, string(change)
	case a.State == assets.StateVerified:
		it.Action, it.Reason = ActionSkip, "verified"
	case a.State == assets.StateMissing || a.State == assets.StateCached:
		// A leftover file of the target format is unrecorded, so the recorded
		// file in the other format is preferred over a download.
		if ref, ok := assets.Convertible(card, loc, format, source, inv); ok {
			it.Action, it.Reason, it.From = ActionConvert, "format-changed", &ref
		} else {
			it.Action, it.Reason = ActionRefetch, string(a.State)
		}
	default:
		it.Action, it.Reason = ActionRefetch, string(a.State)
	}
	return it
}
