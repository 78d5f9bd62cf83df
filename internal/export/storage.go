package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader stores an exported file and returns a time-limited download URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ObjectStore uploads exports to an S3-compatible bucket.
type ObjectStore struct {
	client  *minio.Client
	bucket  string
	expires time.Duration
}

func NewObjectStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, expires time.Duration) (*ObjectStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	return &ObjectStore{client: client, bucket: bucket, expires: expires}, nil
}

// EnsureBucket creates the export bucket if it does not exist.
func (o *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := o.client.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (o *ObjectStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := o.client.PutObject(ctx, o.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	signed, err := o.client.PresignedGetObject(ctx, o.bucket, key, o.expires, params)
	if err != nil {
		return "", fmt.Errorf("presign export: %w", err)
	}
	return signed.String(), nil
}

