package storage

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
)

// GCSStore writes day files to Google Cloud Storage.
type GCSStore struct {
	bucket     *blob.Bucket
	bucketName string
	prefix     string
}

// NewGCSStore creates a new GCS store.
func NewGCSStore(bucketName, prefix string) (*GCSStore, error) {
	ctx := context.Background()

	bucket, err := blob.OpenBucket(ctx, fmt.Sprintf("gs://%s", bucketName))
	if err != nil {
		return nil, fmt.Errorf("open GCS bucket %s: %w", bucketName, err)
	}

	return &GCSStore{
		bucket:     bucket,
		bucketName: bucketName,
		prefix:     prefix,
	}, nil
}

// WriteDay writes parquet bytes to GCS. Object writes are all-or-nothing,
// so no temp-and-rename dance is needed here.
func (s *GCSStore) WriteDay(ctx context.Context, ref DayRef, data []byte) error {
	return writeBlob(ctx, s.bucket, ref.Path(s.prefix), data)
}

// WriteManifest writes the day's manifest to GCS.
func (s *GCSStore) WriteManifest(ctx context.Context, ref DayRef, manifest *Manifest) error {
	data, err := manifest.encode()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeBlob(ctx, s.bucket, ref.ManifestPath(s.prefix), data)
}

func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	return nil
}

// Exists checks whether a day file already exists in GCS.
func (s *GCSStore) Exists(ctx context.Context, ref DayRef) (bool, error) {
	return s.bucket.Exists(ctx, ref.Path(s.prefix))
}

// URI returns the canonical URI for the given key.
func (s *GCSStore) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucketName, key)
}

// Close releases the bucket connection.
func (s *GCSStore) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

var _ BarStore = (*GCSStore)(nil)
