// Package objectstore wraps the S3-compatible object store holding
// rendered invoice documents. The store is constructed once at startup
// and injected; every call carries a bounded timeout so a hung upload
// surfaces as a transient fault instead of stalling a request.
package objectstore

import (
	"bytes"
	"context"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/iliyamo/hotel-billing/internal/repository"
)

// BlobStore is the object-store surface the billing flow depends on.
// InvoiceService uses Put and Remove for the dual-write protocol;
// handlers use PresignedGet to hand download links to the UI.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Config holds the connection parameters for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store is the minio-backed BlobStore implementation.
type Store struct {
	client  *minio.Client
	bucket  string
	timeout time.Duration
}

// New connects to the object store and ensures the bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	s := &Store{client: client, bucket: cfg.Bucket, timeout: 10 * time.Second}
	ok, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Put uploads data under key. Failures are classified transient: the
// caller's retry loop re-attempts the whole protocol from a clean slate.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return repository.Transient("object upload failed", err)
	}
	return nil
}

// Remove deletes the object under key. Removing a key that does not
// exist is not an error, which keeps compensation idempotent.
func (s *Store) Remove(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return repository.Transient("object removal failed", err)
	}
	return nil
}

// PresignedGet returns a time-limited download URL for key.
func (s *Store) PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", repository.Transient("presign failed", err)
	}
	return u.String(), nil
}
