package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/cvintake/cvintake-backend/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOAPI is the subset of the MinIO client used by MinIOStore
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOStore uploads to a MinIO (or other S3-compatible) server
type MinIOStore struct {
	client  MinIOAPI
	bucket  string
	baseURL string
}

// NewMinIOStore connects with static credentials and creates the bucket if missing
func NewMinIOStore(ctx context.Context, cfg config.StorageConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio: endpoint not configured")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return NewMinIOStoreWithClient(ctx, client, cfg.Bucket, cfg.Region, base)
}

// NewMinIOStoreWithClient wraps an existing client; objects are linked as baseURL/key
func NewMinIOStoreWithClient(ctx context.Context, client MinIOAPI, bucket, region, baseURL string) (*MinIOStore, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("minio: create bucket %s: %w", bucket, err)
		}
	}

	return &MinIOStore{client: client, bucket: bucket, baseURL: baseURL}, nil
}

func (s *MinIOStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("minio: put %s/%s: %w", s.bucket, key, err)
	}
	return joinURL(s.baseURL, key), nil
}
