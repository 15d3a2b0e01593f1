package s3client

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kamataryo/geotag/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient represents an S3 client using the MinIO SDK
type MinioClient struct {
	client *minio.Client
	config Config
}

// NewMinIO creates a new MinIO S3 client and checks that the bucket exists
func NewMinIO(ctx context.Context, cfg Config) (S3Interface, error) {
	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Remove protocol prefix if present
	endpoint := cfg.Endpoint
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	// Initialize MinIO client with minimal options
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	// Check if bucket exists
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist: %w", cfg.Bucket, ErrBucketNotFound)
	}

	logger.Info("Connected to S3 endpoint %s, bucket %s", endpoint, cfg.Bucket)

	return &MinioClient{
		client: client,
		config: cfg,
	}, nil
}

// UploadFile uploads a file to S3
func (c *MinioClient) UploadFile(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error {
	// Ensure the object key has the prefix
	objectKey = ObjectKey(c.config.Prefix, objectKey)

	// Set default content type if not provided
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}

	info, err := c.client.PutObject(ctx, c.config.Bucket, objectKey, reader, size, opts)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	logger.Debug("Uploaded file to %s (%d bytes, etag: %s)", objectKey, info.Size, info.ETag)
	return nil
}

// ObjectExists checks if an object exists in the bucket
func (c *MinioClient) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	objectKey = ObjectKey(c.config.Prefix, objectKey)

	// Try to get object info
	_, err := c.client.StatObject(ctx, c.config.Bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		// Check if the error is because the object doesn't exist
		if IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if object exists: %w", err)
	}

	return true, nil
}

// GetBucketName returns the bucket name
func (c *MinioClient) GetBucketName() string {
	return c.config.Bucket
}

// GetEndpoint returns the endpoint
func (c *MinioClient) GetEndpoint() string {
	return c.config.Endpoint
}

// GetPrefix returns the prefix
func (c *MinioClient) GetPrefix() string {
	return c.config.Prefix
}
