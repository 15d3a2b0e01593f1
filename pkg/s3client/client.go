package s3client

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Config represents the configuration for an S3 client
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Validate checks the fields every backend requires
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("S3 endpoint is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("S3 bucket name is required")
	}
	if err := ValidateBucketName(c.Bucket); err != nil {
		return fmt.Errorf("invalid S3 bucket %q: %w", c.Bucket, err)
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("S3 access key and secret key are required")
	}
	return nil
}

// NewMinIOFunc constructs the MinIO-backed client; replaced in tests
var NewMinIOFunc = NewMinIO

// New creates a new S3 client
func New(ctx context.Context, cfg Config) (S3Interface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewMinIOFunc(ctx, cfg)
}

// ObjectKey returns key under prefix, using forward slashes regardless of OS
func ObjectKey(prefix, key string) string {
	key = strings.TrimPrefix(key, "/")
	if prefix == "" {
		return key
	}
	return path.Join(strings.TrimSuffix(prefix, "/"), key)
}
