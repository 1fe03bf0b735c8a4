// Package config loads contentflow settings from defaults, an optional YAML
// file and CONTENTFLOW_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "CONTENTFLOW_"
	// EnvFile names the variable pointing at an optional YAML file.
	EnvFile = EnvPrefix + "CONFIG"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel string `koanf:"log_level"`
	DataDir  string `koanf:"data_dir"`
	// TargetsFile is resolved against DataDir when relative.
	TargetsFile string `koanf:"targets_file"`

	DatabaseURL string `koanf:"database_url"`
	NATSURL     string `koanf:"nats_url"` // empty = no events
	HTTPAddr    string `koanf:"http_addr"`
	// StatusToken, when set, is required as a bearer token by the status API.
	StatusToken string `koanf:"status_token"`

	ScheduleInterval time.Duration `koanf:"schedule_interval"`
	HTTPTimeout      time.Duration `koanf:"http_timeout"`

	YouTubeAPIKey         string `koanf:"youtube_api_key"`
	YouTubeEndpoint       string `koanf:"youtube_endpoint"`
	YouTubeRegion         string `koanf:"youtube_region"`
	YouTubeRequestsPerDay int    `koanf:"youtube_requests_per_day"`

	SpotifyClientID     string `koanf:"spotify_client_id"`
	SpotifyClientSecret string `koanf:"spotify_client_secret"`
	SpotifyEndpoint     string `koanf:"spotify_endpoint"`
	SpotifyAuthEndpoint string `koanf:"spotify_auth_endpoint"`

	TwitterBearerToken   string `koanf:"twitter_bearer_token"`
	TwitterEndpoint      string `koanf:"twitter_endpoint"`
	InstagramAccessToken string `koanf:"instagram_access_token"`
	InstagramEndpoint    string `koanf:"instagram_endpoint"`

	TMDBAPIKey   string `koanf:"tmdb_api_key"`
	TMDBEndpoint string `koanf:"tmdb_endpoint"`

	// Backup: S3 is enabled when a bucket is set, the local archive when a
	// directory is set.
	BackupS3Bucket   string `koanf:"backup_s3_bucket"`
	BackupS3Region   string `koanf:"backup_s3_region"`
	BackupS3Endpoint string `koanf:"backup_s3_endpoint"`
	BackupDir        string `koanf:"backup_dir"`

	DBTBinary      string `koanf:"dbt_binary"`
	DBTProjectDir  string `koanf:"dbt_project_dir"`
	DBTProfilesDir string `koanf:"dbt_profiles_dir"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		LogLevel:              "info",
		DataDir:               "data",
		TargetsFile:           "targets.toml",
		HTTPAddr:              ":8080",
		ScheduleInterval:      time.Hour,
		HTTPTimeout:           30 * time.Second,
		YouTubeRegion:         "US",
		YouTubeRequestsPerDay: 10000,
		BackupS3Region:        "us-east-1",
		DBTBinary:             "dbt",
		DBTProjectDir:         "dbt",
	}
}

// Load builds a Config by layering, from lowest to highest precedence:
// defaults, the YAML file named by CONTENTFLOW_CONFIG, and CONTENTFLOW_*
// environment variables (CONTENTFLOW_DATA_DIR sets data_dir).
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	if c.ScheduleInterval <= 0 {
		return fmt.Errorf("%w: schedule_interval must be positive", ErrInvalidConfig)
	}
	if c.YouTubeRequestsPerDay < 0 {
		return fmt.Errorf("%w: youtube_requests_per_day must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RequireDatabase reports an error when no warehouse URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: %sDATABASE_URL is required", ErrInvalidConfig, EnvPrefix)
	}
	return nil
}

// TargetsPath returns the location of the targets file.
func (c *Config) TargetsPath() string {
	if filepath.IsAbs(c.TargetsFile) {
		return c.TargetsFile
	}
	return filepath.Join(c.DataDir, c.TargetsFile)
}

// LedgerPath returns the location of the run ledger.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}
