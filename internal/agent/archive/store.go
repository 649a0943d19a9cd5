package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"optix.io/optix/pkg/log"
	"optix.io/optix/pkg/options"
)

// Store is an object bucket frames are written to.
type Store interface {
	// CheckBucket makes sure the bucket exists, creating it if needed.
	CheckBucket(ctx context.Context) error

	Put(ctx context.Context, key string, data []byte, contentType string) error
}

type minioStore struct {
	client     *minio.Client
	bucketName string
	region     string
}

// NewMinIOStore creates an S3 backed Store.
func NewMinIOStore(opts *options.S3Options) (Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &minioStore{
		client:     client,
		bucketName: opts.BucketName,
		region:     opts.Region,
	}, nil
}

func (s *minioStore) CheckBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating", "bucket", s.bucketName)
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *minioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
