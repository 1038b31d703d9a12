// Package minio adapts an S3-compatible object store to volume.Store.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jonwraymond/codesession/volume"
)

// Config holds the connection settings for an S3-compatible endpoint.
type Config struct {
	// Endpoint is the host:port of the object store. Required.
	Endpoint string

	// AccessKey and SecretKey authenticate the client.
	AccessKey string
	SecretKey string

	// Bucket is the bucket holding volume objects. Required; it must
	// already exist.
	Bucket string

	// UseSSL enables TLS. Default false.
	UseSSL bool
}

// Validate checks that required fields are set.
func (c Config) Validate() error {
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "Endpoint")
	}
	if c.Bucket == "" {
		missing = append(missing, "Bucket")
	}
	if len(missing) > 0 {
		return fmt.Errorf("minio: missing required config: %v", missing)
	}
	return nil
}

// Store is a volume.Store backed by a single bucket.
type Store struct {
	client *minio.Client
	bucket string
}

var _ volume.Store = (*Store)(nil)

// New connects to the configured endpoint.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: connect %s: %w", cfg.Endpoint, err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *minio.Client, bucket string) (*Store, error) {
	if client == nil {
		return nil, errors.New("minio: client is required")
	}
	if bucket == "" {
		return nil, errors.New("minio: bucket is required")
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Put writes data under key, replacing any existing object.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("minio: put %q: %w", key, err)
	}
	return nil
}

// Get reads the object under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio: get %q: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", volume.ErrNotFound, key)
		}
		return nil, fmt.Errorf("minio: get %q: %w", key, err)
	}
	return data, nil
}

// List returns the sorted keys beginning with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: list %q: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the object under key. Deleting a missing key is not an
// error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: delete %q: %w", key, err)
	}
	return nil
}
