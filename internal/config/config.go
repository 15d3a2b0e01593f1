package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: GEOTAG_OUTPUT_DIR -> output_dir
const EnvPrefix = "GEOTAG"

// Config represents the application configuration
type Config struct {
	TrackPath    string `mapstructure:"-"`
	ImagePattern string `mapstructure:"-"`

	OutputDir string `mapstructure:"output_dir"`
	LogLevel  string `mapstructure:"log_level"`
	// UTCOffset overrides the process local offset when non-empty, e.g. "+09:00"
	UTCOffset       string        `mapstructure:"utc_offset"`
	ContinueOnError bool          `mapstructure:"continue_on_error"`
	DryRun          bool          `mapstructure:"dry_run"`
	Publish         PublishConfig `mapstructure:"publish"`
}

// PublishConfig represents the optional S3 upload of annotated copies
type PublishConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoint   string        `mapstructure:"endpoint"`
	Region     string        `mapstructure:"region"`
	Bucket     string        `mapstructure:"bucket"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	UseSSL     bool          `mapstructure:"use_ssl"`
	Prefix     string        `mapstructure:"prefix"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// SkipExisting leaves objects already in the bucket untouched
	SkipExisting bool `mapstructure:"skip_existing"`
}

// New creates a new configuration with default values
func New() *Config {
	return &Config{
		LogLevel: "info",
		Publish: PublishConfig{
			Region:     "us-east-1",
			UseSSL:     true,
			MaxRetries: 3,
			Timeout:    5 * time.Minute,
		},
	}
}

// SetDefaults registers the defaults of New on v
func SetDefaults(v *viper.Viper) {
	d := New()
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("utc_offset", d.UTCOffset)
	v.SetDefault("continue_on_error", d.ContinueOnError)
	v.SetDefault("dry_run", d.DryRun)
	v.SetDefault("publish.enabled", d.Publish.Enabled)
	v.SetDefault("publish.endpoint", d.Publish.Endpoint)
	v.SetDefault("publish.region", d.Publish.Region)
	v.SetDefault("publish.bucket", d.Publish.Bucket)
	v.SetDefault("publish.access_key", d.Publish.AccessKey)
	v.SetDefault("publish.secret_key", d.Publish.SecretKey)
	v.SetDefault("publish.use_ssl", d.Publish.UseSSL)
	v.SetDefault("publish.prefix", d.Publish.Prefix)
	v.SetDefault("publish.max_retries", d.Publish.MaxRetries)
	v.SetDefault("publish.timeout", d.Publish.Timeout)
	v.SetDefault("publish.skip_existing", d.Publish.SkipExisting)
}

// Load reads the optional config file and environment overrides into a Config.
// An empty configFile skips file loading.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration fields are present and sane
func (c *Config) Validate() error {
	var errs []string

	if c.OutputDir == "" {
		errs = append(errs, "output_dir is required")
	}
	if c.HasOffset() {
		if _, err := ParseOffset(c.UTCOffset); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if c.Publish.Enabled {
		if c.Publish.Endpoint == "" {
			errs = append(errs, "publish.endpoint is required when publishing")
		}
		if c.Publish.Bucket == "" {
			errs = append(errs, "publish.bucket is required when publishing")
		}
		if c.Publish.AccessKey == "" || c.Publish.SecretKey == "" {
			errs = append(errs, "publish.access_key and publish.secret_key are required when publishing")
		}
		if c.Publish.MaxRetries < 0 {
			errs = append(errs, "publish.max_retries must not be negative")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// HasOffset reports whether a fixed UTC offset override is configured
func (c *Config) HasOffset() bool {
	return c.UTCOffset != ""
}

// ParseOffset parses "+09:00", "-0430", "Z" or a Go duration such as "9h"
func ParseOffset(s string) (time.Duration, error) {
	if s == "Z" || s == "z" {
		return 0, nil
	}
	for _, layout := range []string{"-07:00", "-0700", "-07"} {
		if t, err := time.Parse(layout, s); err == nil {
			_, off := t.Zone()
			return time.Duration(off) * time.Second, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("utc_offset %q is not an offset like +09:00", s)
	}
	return d, nil
}
