// Package storage publishes build artifacts to S3-compatible object storage.
//
// It wraps the MinIO Go client behind the Client interface so publication can
// be tested with the mocks in core/storage/mocks. The helpers cover what the
// packager needs: make sure the bucket exists, upload archives, and prune
// archives that are no longer produced.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
//	    return err
//	}
//	_, err = storage.UploadFile(ctx, client, cfg.Storage.Bucket, "archives/hsd01-images.zip", path, "application/zip")
package storage
