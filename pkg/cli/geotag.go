package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/kamataryo/geotag/internal/config"
	"github.com/kamataryo/geotag/internal/geotag"
	"github.com/kamataryo/geotag/internal/logger"
	"github.com/kamataryo/geotag/internal/publisher"
	"github.com/kamataryo/geotag/pkg/common"
	"github.com/kamataryo/geotag/pkg/s3client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"output-dir":        "output_dir",
	"log-level":         "log_level",
	"utc-offset":        "utc_offset",
	"continue-on-error": "continue_on_error",
	"dry-run":           "dry_run",
	"publish":           "publish.enabled",
	"s3-endpoint":       "publish.endpoint",
	"s3-region":         "publish.region",
	"s3-bucket":         "publish.bucket",
	"s3-access-key":     "publish.access_key",
	"s3-secret-key":     "publish.secret_key",
	"s3-use-ssl":        "publish.use_ssl",
	"s3-prefix":         "publish.prefix",
	"s3-max-retries":    "publish.max_retries",
	"s3-timeout":        "publish.timeout",
	"s3-skip-existing":  "publish.skip_existing",
}

// NewRootCommand builds the geotag command with a fresh configuration
func NewRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "geotag [flags] <track.gpx> <image-pattern>",
		Short: "Geotag photos from a GPX track log",
		Long: `Copies every image matching the pattern into the output directory and writes
the GPS position interpolated from the track log at each photo's capture time.
The pattern supports * and ** wildcards; quote it to keep the shell from expanding it.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			cfg.TrackPath = args[0]
			cfg.ImagePattern = args[1]
			return runGeotag(cmd.Context(), cfg)
		},
	}

	defaults := config.New()
	flags := cmd.Flags()

	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.StringP("output-dir", "o", defaults.OutputDir, "Directory receiving the tagged copies (required)")
	flags.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("utc-offset", defaults.UTCOffset, "UTC offset of the camera clock, e.g. +09:00 (default: local zone)")
	flags.Bool("continue-on-error", defaults.ContinueOnError, "Keep going after a per-image failure and report all failures at the end")
	flags.Bool("dry-run", defaults.DryRun, "Report what would be tagged without writing anything")

	// Publish options
	flags.Bool("publish", defaults.Publish.Enabled, "Upload tagged copies to S3-compatible storage")
	flags.String("s3-endpoint", defaults.Publish.Endpoint, "S3 endpoint URL")
	flags.String("s3-region", defaults.Publish.Region, "S3 region")
	flags.String("s3-bucket", defaults.Publish.Bucket, "S3 bucket name")
	flags.String("s3-access-key", defaults.Publish.AccessKey, "S3 access key")
	flags.String("s3-secret-key", defaults.Publish.SecretKey, "S3 secret key")
	flags.Bool("s3-use-ssl", defaults.Publish.UseSSL, "Use SSL for S3 connection")
	flags.String("s3-prefix", defaults.Publish.Prefix, "Prefix for S3 object keys")
	flags.Int("s3-max-retries", defaults.Publish.MaxRetries, "Retries per upload before giving up")
	flags.Duration("s3-timeout", defaults.Publish.Timeout, "Timeout per upload")
	flags.Bool("s3-skip-existing", defaults.Publish.SkipExisting, "Skip copies whose object key already exists in the bucket")

	if err := bindFlags(v, flags); err != nil {
		panic(err)
	}

	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

func runGeotag(ctx context.Context, cfg *config.Config) error {
	logger.SetLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return err
	}

	var opts []geotag.Option
	if cfg.Publish.Enabled && !cfg.DryRun {
		pub, err := newPublisher(ctx, cfg.Publish)
		if err != nil {
			return err
		}
		opts = append(opts, geotag.WithPublisher(pub))
	}

	run, err := geotag.New(cfg, opts...)
	if err != nil {
		return err
	}

	if _, err := run.Execute(ctx); err != nil {
		if errors.Is(err, common.ErrNoImagesMatched) {
			logger.Info("No images match %s; nothing to do", cfg.ImagePattern)
			return nil
		}
		return err
	}

	return nil
}

func newPublisher(ctx context.Context, cfg config.PublishConfig) (*publisher.Publisher, error) {
	client, err := s3client.New(ctx, s3client.Config{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		Bucket:    cfg.Bucket,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Prefix:    cfg.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	retry := publisher.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	return publisher.New(client, publisher.Options{
		Retry:        retry,
		Timeout:      cfg.Timeout,
		SkipExisting: cfg.SkipExisting,
	}), nil
}
