package publisher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/kamataryo/geotag/internal/logger"
	"github.com/kamataryo/geotag/pkg/s3client"
)

// RetryConfig defines retry behavior for uploads that might fail transiently
type RetryConfig struct {
	// MaxRetries is the maximum number of retries before giving up
	MaxRetries int

	// InitialBackoff is the duration to wait before the first retry
	InitialBackoff time.Duration

	// MaxBackoff is the maximum duration to wait between retries
	MaxBackoff time.Duration

	// BackoffFactor is the factor by which to increase backoff after each retry
	BackoffFactor float64

	// RetryableErrors lists S3 error codes that should be retried
	RetryableErrors map[string]bool
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialBackoff:  1 * time.Second,
		MaxBackoff:      30 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: defaultRetryableErrors(),
	}
}

func defaultRetryableErrors() map[string]bool {
	return map[string]bool{
		"RequestTimeout":       true,
		"RequestTimeTooSkewed": true,
		"InternalError":        true,
		"SlowDown":             true,
		"OperationAborted":     true,
		"ServiceUnavailable":   true,
		"RequestLimitExceeded": true,
	}
}

// IsRetryable determines if an error should be retried based on its type or message
func (rc RetryConfig) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if s3client.IsAuthError(err) || s3client.IsNotFoundError(err) {
		return false
	}

	for errCode := range rc.RetryableErrors {
		if strings.Contains(err.Error(), errCode) {
			return true
		}
	}

	lowerErr := strings.ToLower(err.Error())
	return strings.Contains(lowerErr, "timeout") ||
		strings.Contains(lowerErr, "connection") ||
		strings.Contains(lowerErr, "reset") ||
		strings.Contains(lowerErr, "broken pipe") ||
		strings.Contains(lowerErr, "unavailable")
}

// RetryWithBackoff retries fn with exponential backoff until it succeeds,
// fails permanently, or the attempts are exhausted
func RetryWithBackoff(ctx context.Context, operation string, fn func() error, config RetryConfig) error {
	var err error
	var attempt int

	for attempt = 0; attempt <= config.MaxRetries; attempt++ {
		// Check if context is done before attempting operation
		if ctx.Err() != nil {
			return fmt.Errorf("%s canceled: %w", operation, ctx.Err())
		}

		// If this is a retry, log the attempt
		if attempt > 0 {
			logger.Debug("Retry attempt %d/%d for %s", attempt, config.MaxRetries, operation)
		}

		// Attempt the operation
		err = fn()
		if err == nil {
			if attempt > 0 {
				logger.Info("Completed %s after %d retries", operation, attempt)
			}
			return nil
		}

		// Check if the error is retryable
		if !config.IsRetryable(err) {
			return err
		}

		// Last attempt failed
		if attempt == config.MaxRetries {
			break
		}

		// Calculate backoff duration
		backoff := getBackoffDuration(attempt, config)
		logger.Debug("Backing off for %v before retrying %s: %v", backoff, operation, err)

		// Wait for the backoff duration or until context is canceled
		select {
		case <-time.After(backoff):
			// Continue to the next attempt
		case <-ctx.Done():
			return fmt.Errorf("%s canceled during retry: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt+1, err)
}

// getBackoffDuration calculates the backoff duration for a retry attempt
func getBackoffDuration(attempt int, config RetryConfig) time.Duration {
	// Calculate exponential backoff
	backoff := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))

	// Add jitter (±20% randomness)
	jitter := (rand.Float64() * 0.4) - 0.2
	backoff = backoff * (1 + jitter)

	// Ensure backoff doesn't exceed max
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	return time.Duration(backoff)
}
