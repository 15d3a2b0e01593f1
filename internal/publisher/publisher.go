package publisher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kamataryo/geotag/internal/logger"
	"github.com/kamataryo/geotag/internal/timeline"
	"github.com/kamataryo/geotag/pkg/s3client"
)

// Options controls how copies are uploaded
type Options struct {
	Retry RetryConfig
	// Timeout bounds one upload including retries; zero disables it
	Timeout time.Duration
	// SkipExisting leaves objects already stored under the same key untouched
	SkipExisting bool
}

// Publisher uploads annotated copies to S3-compatible storage
type Publisher struct {
	client s3client.S3Interface
	opts   Options
}

// New creates a Publisher
func New(client s3client.S3Interface, opts Options) *Publisher {
	return &Publisher{
		client: client,
		opts:   opts,
	}
}

// Publish uploads the file at path under its base name. fix, when non-nil,
// is attached as object metadata.
func (p *Publisher) Publish(ctx context.Context, path string, fix *timeline.TimePoint) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	key := filepath.Base(path)
	metadata := Metadata(path, fix)
	contentType := s3client.DetectContentType(path)

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	// Check if the object is already in the bucket
	if p.opts.SkipExisting {
		exists, err := p.client.ObjectExists(ctx, key)
		if err != nil {
			logger.Warn("Failed to check if %s exists, uploading anyway: %v", key, err)
		} else if exists {
			logger.Info("Skipping %s: already in bucket %s", key, p.client.GetBucketName())
			return nil
		}
	}

	upload := func() error {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		return p.client.UploadFile(ctx, file, key, info.Size(), metadata, contentType)
	}

	if err := RetryWithBackoff(ctx, "upload "+key, upload, p.opts.Retry); err != nil {
		logger.Debug("Upload of %s failed: %s", key, s3client.FormatError(err))
		return fmt.Errorf("failed to publish %s to %s: %w", path, p.client.GetBucketName(), err)
	}

	logger.Info("Published %s to s3://%s/%s on %s", path, p.client.GetBucketName(),
		s3client.ObjectKey(p.client.GetPrefix(), key), p.client.GetEndpoint())
	return nil
}

// Metadata converts a fix into S3 user metadata
func Metadata(path string, fix *timeline.TimePoint) map[string]string {
	result := map[string]string{
		"original-filename": filepath.Base(path),
	}
	if fix == nil {
		return result
	}

	result["geo-latitude"] = strconv.FormatFloat(fix.Lat, 'f', 6, 64)
	result["geo-longitude"] = strconv.FormatFloat(fix.Lon, 'f', 6, 64)
	if fix.Elevation != nil {
		result["geo-altitude"] = strconv.FormatFloat(*fix.Elevation, 'f', 2, 64)
	}
	result["geo-timestamp"] = time.Unix(fix.Time, 0).UTC().Format(time.RFC3339)

	return result
}
