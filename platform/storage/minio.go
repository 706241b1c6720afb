// Package storage wraps MinIO S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"leadintake_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const presignedURLTTL = 15 * time.Minute

// Service is the object storage surface the modules consume.
type Service interface {
	EnsureBucketExists(ctx context.Context, bucket string) error
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	PresignedGetURL(ctx context.Context, bucket, fileKey string) (string, error)
	DeleteObject(ctx context.Context, bucket, fileKey string) error
}

// MinIOService implements Service on a MinIO endpoint.
type MinIOService struct {
	client *minio.Client
}

var _ Service = (*MinIOService)(nil)

func NewMinIOService(cfg config.StorageConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{client: client}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// UploadFile stores the file under a collision-safe key and returns it.
func (s *MinIOService) UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	ext := path.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	fileKey := path.Join(folder, fmt.Sprintf("%s_%s%s", baseName, uuid.New().String()[:8], ext))

	_, err := s.client.PutObject(ctx, bucket, fileKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// PresignedGetURL returns a short-lived download URL for an object.
func (s *MinIOService) PresignedGetURL(ctx context.Context, bucket, fileKey string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, fileKey, presignedURLTTL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL for %s: %w", fileKey, err)
	}
	return u.String(), nil
}

// DeleteObject removes an object. Missing objects are not an error.
func (s *MinIOService) DeleteObject(ctx context.Context, bucket, fileKey string) error {
	if err := s.client.RemoveObject(ctx, bucket, fileKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", fileKey, err)
	}
	return nil
}
