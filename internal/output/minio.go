package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/MeKo-Tech/celltraj/internal/features"
)

// ObjectStoreConfig holds the connection settings of an S3-compatible bucket.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// ObjectStore writes units as objects <Prefix>/ii=<cell>.<ext>.
type ObjectStore struct {
	client *miniogo.Client
	bucket string
	prefix string
	enc    features.Encoding
}

// NewObjectStore creates a MinIO client for cfg. No request is made.
func NewObjectStore(cfg ObjectStoreConfig, enc features.Encoding) (*ObjectStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("object store needs an endpoint and a bucket")
	}
	if _, err := features.ParseFormat(string(enc.Format)); err != nil {
		return nil, err
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, enc: enc}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Name returns the object key of a cell's unit.
func (s *ObjectStore) Name(cell int) string {
	return objectKey(s.prefix, UnitName(cell, s.enc.Format))
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Exists stats the object; a missing key is not an error.
func (s *ObjectStore) Exists(ctx context.Context, cell int) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.Name(cell), miniogo.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", s.Name(cell), err)
}

func isNotFound(err error) bool {
	code := miniogo.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Write uploads the encoded unit.
func (s *ObjectStore) Write(ctx context.Context, cell int, records []features.Record) error {
	data, err := encode(s.enc, records)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.Name(cell), bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: s.enc.Format.ContentType()})
	if err != nil {
		return fmt.Errorf("upload %s: %w", s.Name(cell), err)
	}
	return nil
}
