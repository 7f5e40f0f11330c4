package run

import (
	"context"
	"errors"
	"fmt"

	"cardsync/core/assets"
	"cardsync/core/catalog"
	"cardsync/core/config"
	"cardsync/core/fetch"
	"cardsync/core/reconcile"
	"cardsync/core/storage"
	"cardsync/feature/images"
	"cardsync/feature/packager"
	"cardsync/feature/proxy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Report is everything one sync produced.
type Report struct {
	RunID     string
	Reconcile *reconcile.Result
	Plan      *reconcile.Plan
	Images    *images.Report
	Archives  []packager.Archive
	// Saved reports whether the catalog file was written.
	Saved bool
}

// Runner wires the stages of a sync: reconcile, plan, images, package.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger

	// Sources replaces the configured adapters when set.
	Sources []reconcile.Ranked
	// Fetcher replaces the HTTP fetcher when set.
	Fetcher images.Fetcher
	// Storage replaces the bucket client used by Publish when set.
	Storage storage.Client
}

// New creates a Runner.
func New(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Store returns the asset store selected by d.
func (r *Runner) Store(d Directives) *assets.Store {
	if d.AssetsPath != "" {
		return assets.NewStore(d.AssetsPath)
	}
	return assets.NewStore(r.cfg.Catalog.Root)
}

// CatalogPath returns the catalog file selected by d.
func (r *Runner) CatalogPath(d Directives) string {
	c := r.cfg.Catalog
	if d.AssetsPath != "" {
		c.Root = d.AssetsPath
	}
	return c.Path()
}

// Proxy builds the proxy index of d, or returns nil when proxies are off.
func (r *Runner) Proxy(d Directives) (reconcile.ProxyResolver, error) {
	if d.ProxyPath == "" {
		return nil, nil
	}
	ix, err := proxy.Build(d.ProxyPath)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Proxy images indexed", zap.String("path", d.ProxyPath), zap.Int("files", ix.Len()))
	return ix, nil
}

// Reconcile loads the previous catalog and folds the sources into a new one.
// With SkipUpdate the previous catalog is returned unchanged.
func (r *Runner) Reconcile(ctx context.Context, d Directives, logger *zap.Logger) (*reconcile.Result, error) {
	prev, err := catalog.LoadPrevious(r.CatalogPath(d), d.Clean)
	if err != nil {
		return nil, err
	}

	if d.SkipUpdate {
		res := &reconcile.Result{Catalog: prev.Clone(), Changes: make(map[catalog.Key]reconcile.Change, prev.Len())}
		for _, k := range prev.Keys() {
			res.Changes[k] = reconcile.ChangeUnchanged
		}
		logger.Info("Catalog update skipped", zap.Int("cards", prev.Len()))
		return res, nil
	}

	ranked := r.Sources
	if ranked == nil {
		var closeSources func() error
		ranked, closeSources, err = BuildSources(r.cfg, d, logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := closeSources(); err != nil {
				logger.Warn("Failed to close source", zap.Error(err))
			}
		}()
	}

	return reconcile.Reconcile(ctx, &reconcile.Spec{Sources: ranked, Filter: d.Filter(), Logger: logger}, prev)
}

// Plan reconciles and classifies the required assets without writing
// anything.
func (r *Runner) Plan(ctx context.Context, d Directives) (*reconcile.Plan, *reconcile.Result, error) {
	logger := r.logger.With(zap.String("run_id", uuid.NewString()))
	res, err := r.Reconcile(ctx, d, logger)
	if err != nil {
		return nil, nil, err
	}
	plan, err := r.plan(ctx, d, res)
	if err != nil {
		return nil, res, err
	}
	return plan, res, nil
}

func (r *Runner) plan(ctx context.Context, d Directives, res *reconcile.Result) (*reconcile.Plan, error) {
	inv, err := r.Store(d).Scan(ctx)
	if err != nil {
		return nil, err
	}
	px, err := r.Proxy(d)
	if err != nil {
		return nil, err
	}
	return reconcile.BuildPlan(res.Catalog, res.Changes, inv, d.planDirectives(px)), nil
}

// Sync runs every stage selected by d. The catalog is saved after the image
// stage, so a later run resumes from the records of every finished item.
// A run that stopped because the store is unwritable does not save.
//
// The returned error is non-nil when any stage failed, including single
// image failures; the Report still describes the partial work.
func (r *Runner) Sync(ctx context.Context, d Directives) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logger := r.logger.With(zap.String("run_id", report.RunID))
	logger.Info("Sync started",
		zap.String("number", d.Number),
		zap.String("expansion", d.Expansion),
		zap.Bool("images", d.Images),
		zap.Bool("clean", d.Clean),
		zap.Bool("skip_update", d.SkipUpdate))

	res, err := r.Reconcile(ctx, d, logger)
	if err != nil {
		return report, err
	}
	report.Reconcile = res
	cat := res.Catalog

	var imageErr error
	if d.Images {
		report.Plan, err = r.plan(ctx, d, res)
		if err != nil {
			return report, err
		}
		logger.Info("Work plan built",
			zap.Int("cards", report.Plan.Summary.Cards),
			zap.Int("skip", report.Plan.Summary.Skip),
			zap.Int("refetch", report.Plan.Summary.Refetch),
			zap.Int("convert_only", report.Plan.Summary.Convert))

		report.Images, imageErr = r.pipeline(d, logger).Execute(ctx, report.Plan.Pending())
		if errors.Is(imageErr, images.ErrStoreUnwritable) {
			logger.Error("Asset store unwritable, catalog not saved", zap.Error(imageErr))
			return report, imageErr
		}
		images.Commit(cat, report.Images)
		if imageErr == nil {
			imageErr = report.Images.Err()
		}
	}

	if err := catalog.Save(r.CatalogPath(d), cat); err != nil {
		return report, err
	}
	report.Saved = true
	logger.Info("Catalog saved", zap.String("path", r.CatalogPath(d)), zap.Int("cards", cat.Len()))

	if imageErr != nil {
		return report, fmt.Errorf("image synchronization incomplete: %w", imageErr)
	}

	if d.Zip {
		report.Archives, err = r.Package(ctx, d, cat)
		if err != nil {
			return report, err
		}
		if d.Publish {
			if err := r.Publish(ctx, d, report.Archives); err != nil {
				return report, err
			}
		}
	}

	logger.Info("Sync finished")
	return report, nil
}

func (r *Runner) pipeline(d Directives, logger *zap.Logger) *images.Pipeline {
	p := r.cfg.Pipeline
	workers := p.Workers
	if d.Workers > 0 {
		workers = d.Workers
	}
	fetcher := r.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(p.FetchConfig(), nil)
	}
	return images.New(r.Store(d), fetcher, images.Options{
		Workers:          workers,
		Encoding:         p.ImagingOptions(),
		MaxWriteFailures: p.MaxWriteFailures,
	}, logger)
}

// Package writes the archives of the expansions selected by d.
func (r *Runner) Package(ctx context.Context, d Directives, cat *catalog.Catalog) ([]packager.Archive, error) {
	px, err := r.Proxy(d)
	if err != nil {
		return nil, err
	}
	opts := packager.Options{
		Filter: catalog.Filter{Number: d.Number},
		Format: d.Format(),
		Proxy:  px,
		Output: r.cfg.Catalog.Output,
	}
	if d.Expansion != "" {
		opts.Expansions = []string{d.Expansion}
	}
	return packager.New(r.Store(d), r.logger).Package(ctx, cat, opts)
}

// Publish uploads archives. Stale archives are pruned only when every
// expansion was packaged.
func (r *Runner) Publish(ctx context.Context, d Directives, archives []packager.Archive) error {
	client := r.Storage
	if client == nil {
		c, err := storage.NewClient(r.cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		client = c
	}
	return packager.NewPublisher(client, r.cfg.Storage, r.logger).Publish(ctx, archives, d.Filter().IsZero())
}
