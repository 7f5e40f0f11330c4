package images

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cardsync/core/assets"
	"cardsync/core/catalog"
	"cardsync/core/fetch"
	"cardsync/core/imaging"
	"cardsync/core/metrics"
	"cardsync/core/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAssetFetchFailed means the image could not be retrieved or decoded.
	ErrAssetFetchFailed = errors.New("asset fetch failed")
	// ErrAssetWriteFailed means the encoded image could not be written.
	ErrAssetWriteFailed = errors.New("asset write failed")
	// ErrStoreUnwritable means writes kept failing and the run was stopped.
	ErrStoreUnwritable = errors.New("asset store unwritable")
)

// Fetcher retrieves the bytes behind an image reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*fetch.Result, error)
}

// Options tunes the pipeline.
type Options struct {
	// Workers bounds concurrent items.
	Workers int
	// Encoding holds quality settings; the format comes from each item.
	Encoding imaging.Options
	// MaxWriteFailures consecutive write failures with no success in between
	// stop dispatch with ErrStoreUnwritable. Zero disables escalation.
	MaxWriteFailures int
}

// Pipeline executes the pending items of a work plan.
type Pipeline struct {
	store   *assets.Store
	fetcher Fetcher
	opts    Options
	logger  *zap.Logger
}

// New creates a Pipeline.
func New(store *assets.Store, fetcher Fetcher, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{store: store, fetcher: fetcher, opts: opts, logger: logger}
}

// Execute processes items with a bounded worker pool and returns one outcome
// per item, in item order.
//
// Cancelling ctx stops dispatch; items already started run to completion.
// The error is ErrStoreUnwritable when write failures escalated, or the
// context error when dispatch was interrupted. Per-item failures are only
// reported in the Report.
func (p *Pipeline) Execute(ctx context.Context, items []reconcile.WorkItem) (*Report, error) {
	report := &Report{Outcomes: make([]Outcome, len(items))}
	for i, it := range items {
		report.Outcomes[i] = Outcome{Item: it, Status: StatusNotRun}
	}

	// Started items finish even when the run is cancelled.
	work := context.WithoutCancel(ctx)
	guard := &writeGuard{limit: p.opts.MaxWriteFailures}

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i := range items {
		if ctx.Err() != nil || guard.tripped() {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil || guard.tripped() {
				return nil
			}
			out := p.process(work, items[i])
			report.Outcomes[i] = out
			guard.observe(out)
			return nil
		})
	}
	_ = g.Wait()

	report.tally()
	p.logger.Info("Image pipeline finished",
		zap.Int("items", len(items)),
		zap.Int("written", report.Written),
		zap.Int("converted", report.Converted),
		zap.Int("failed", report.Failed),
		zap.Int("not_run", report.NotRun))

	if guard.tripped() {
		return report, fmt.Errorf("%w: %d consecutive write failures: %v", ErrStoreUnwritable, guard.limit, guard.lastErr())
	}
	if err := ctx.Err(); err != nil && report.NotRun > 0 {
		return report, err
	}
	return report, nil
}

func (p *Pipeline) process(ctx context.Context, it reconcile.WorkItem) Outcome {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	out := Outcome{Item: it}
	log := p.logger.With(
		zap.String("card", it.Asset.Key.Number),
		zap.Int("variant", it.Asset.Key.Variant),
		zap.String("locale", string(it.Asset.Locale)),
		zap.String("action", string(it.Action)),
	)

	var (
		data         []byte
		lastModified string
		err          error
	)
	if it.Action == reconcile.ActionConvert && it.From != nil {
		data, err = p.store.Read(it.From.Locale, it.From.Path)
	} else {
		var res *fetch.Result
		res, err = p.fetcher.Fetch(ctx, it.Source)
		if err == nil {
			data, lastModified = res.Data, res.LastModified
		}
	}
	if err != nil {
		return p.fail(log, out, StatusFetchFailed, fmt.Errorf("%w: %s: %w", ErrAssetFetchFailed, it.Source, err))
	}

	enc := p.opts.Encoding
	enc.Format = it.Asset.Format
	encoded, err := imaging.Convert(data, enc)
	if err != nil {
		return p.fail(log, out, StatusFetchFailed, fmt.Errorf("%w: %s: %w", ErrAssetFetchFailed, it.Source, err))
	}

	hash, err := p.store.Write(it.Asset.Locale, it.Path, encoded)
	if err != nil {
		return p.fail(log, out, StatusWriteFailed, fmt.Errorf("%w: %s: %w", ErrAssetWriteFailed, it.Path, err))
	}

	out.Status = StatusWritten
	if it.Action == reconcile.ActionConvert {
		out.Status = StatusConverted
	}
	out.Record = catalog.AssetRecord{
		Path:         it.Path,
		Format:       it.Asset.Format,
		Source:       it.Source,
		Hash:         hash,
		LastModified: lastModified,
	}
	metrics.ObserveAsset(string(out.Status))
	log.Debug("Asset written", zap.String("path", it.Path), zap.Int("bytes", len(encoded)))
	return out
}

func (p *Pipeline) fail(log *zap.Logger, out Outcome, status Status, err error) Outcome {
	out.Status = status
	out.Err = err
	metrics.ObserveAsset(string(status))
	log.Warn("Asset failed", zap.String("source", out.Item.Source), zap.Error(err))
	return out
}

// writeGuard trips after limit consecutive write failures.
type writeGuard struct {
	limit int

	mu          sync.Mutex
	consecutive int
	last        error
	stop        bool
}

func (g *writeGuard) observe(o Outcome) {
	if g.limit <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	switch o.Status {
	case StatusWriteFailed:
		g.consecutive++
		g.last = o.Err
		if g.consecutive >= g.limit {
			g.stop = true
		}
	case StatusWritten, StatusConverted:
		g.consecutive = 0
	}
}

func (g *writeGuard) tripped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stop
}

func (g *writeGuard) lastErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
