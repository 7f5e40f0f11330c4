package packager

import (
	"context"
	"path"
	"path/filepath"

	"cardsync/core/metrics"
	"cardsync/core/storage"

	"go.uber.org/zap"
)

// Publisher uploads archives to an object storage bucket.
type Publisher struct {
	client storage.Client
	cfg    storage.Config
	logger *zap.Logger
}

// NewPublisher creates a Publisher for the bucket in cfg.
func NewPublisher(client storage.Client, cfg storage.Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, cfg: cfg, logger: logger}
}

// ObjectName returns the object name of an archive file.
func (p *Publisher) ObjectName(file string) string {
	return path.Join(p.cfg.Prefix, filepath.Base(file))
}

// Publish uploads every archive. With prune, archives in the bucket that were
// not part of this upload are removed afterwards.
func (p *Publisher) Publish(ctx context.Context, archives []Archive, prune bool) error {
	if err := storage.EnsureBucket(ctx, p.client, p.cfg.Bucket, p.cfg.Region); err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(archives))
	for _, a := range archives {
		object := p.ObjectName(a.Path)
		info, err := storage.UploadFile(ctx, p.client, p.cfg.Bucket, object, a.Path, "application/zip")
		if err != nil {
			metrics.ObservePackage("publish-failed")
			return err
		}
		metrics.ObservePackage("published")
		keep[path.Base(object)] = struct{}{}
		p.logger.Info("Archive published",
			zap.String("bucket", p.cfg.Bucket),
			zap.String("object", object),
			zap.Int64("size", info.Size))
	}

	if !prune {
		return nil
	}
	removed, err := storage.Prune(ctx, p.client, p.cfg.Bucket, p.cfg.Prefix, ArchiveSuffix, keep)
	for _, name := range removed {
		p.logger.Info("Stale archive removed", zap.String("object", name))
	}
	return err
}
