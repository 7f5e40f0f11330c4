package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
)

// EnsureBucket creates bucket when it does not exist.
func EnsureBucket(ctx context.Context, c Client, bucket, region string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// UploadFile uploads the local file at filePath as object.
func UploadFile(ctx context.Context, c Client, bucket, object, filePath, contentType string) (minio.UploadInfo, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return minio.UploadInfo{}, err
	}

	up, err := c.PutObject(ctx, bucket, object, f, info.Size(), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("failed to upload %s: %w", object, err)
	}
	return up, nil
}

// ListNames returns the sorted names of the objects under prefix.
func ListNames(ctx context.Context, c Client, bucket, prefix string) ([]string, error) {
	var names []string
	for obj := range c.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s/%s: %w", bucket, prefix, obj.Err)
		}
		names = append(names, obj.Key)
	}
	sort.Strings(names)
	return names, nil
}

// Prune removes the objects under prefix whose base name ends with suffix
// and is not in keep. It returns the removed names.
func Prune(ctx context.Context, c Client, bucket, prefix, suffix string, keep map[string]struct{}) ([]string, error) {
	names, err := ListNames(ctx, c, bucket, prefix)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, name := range names {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		if _, ok := keep[path.Base(name)]; ok {
			continue
		}
		if err := c.RemoveObject(ctx, bucket, name, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}
