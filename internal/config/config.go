// Package config loads the sentinel-stac configuration file and applies
// command-line overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working
// directory when --config is not given.
const DefaultFile = "sentinel-stac.yml"

// Config holds the settings shared by all subcommands.
type Config struct {
	// SentinelHost is the base URL of the product catalogue, for
	// example https://dhr1.cesnet.cz.
	SentinelHost string `yaml:"sentinel_host"`
	// StacHost is the base URL of the STAC catalogue items are
	// pushed to.
	StacHost string `yaml:"stac_host"`
	// LocalDir is the working directory holding the checkpoint
	// file, the product list and saved STAC items.
	LocalDir string `yaml:"local_dir"`

	// LookbackDays bounds the first query when no checkpoint exists.
	LookbackDays int `yaml:"lookback_days"`
	// PageSize is the number of products requested per search page.
	PageSize int `yaml:"page_size"`

	// SuccPrefix and ErrPrefix are path prefixes for the dated
	// registration report files; the removal variants cover the
	// remove command.
	SuccPrefix        string `yaml:"succ_prefix"`
	ErrPrefix         string `yaml:"err_prefix"`
	SuccPrefixRemoval string `yaml:"succ_prefix_removal"`
	ErrPrefixRemoval  string `yaml:"err_prefix_removal"`

	// Salt is the optional site prefix prepended to product titles
	// when entries were created; remove strips it before mapping the
	// title to a collection.
	Salt string `yaml:"salt"`

	// GeneratorCommand is the external command producing a STAC item
	// from a fetched metadata directory.
	GeneratorCommand string `yaml:"generator_command"`

	// S3 optionally stores generated items in a bucket instead of
	// LocalDir.
	S3 S3Config `yaml:"s3"`

	// Schedule is the cron expression used by watch mode.
	Schedule string `yaml:"schedule"`
	// MetricsAddr is the listen address for the watch-mode metrics
	// endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// S3Config configures the optional S3 item store.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LookbackDays: 30,
		PageSize:     100,
		Schedule:     "@hourly",
		MetricsAddr:  ":9348",
	}
}

// Load reads the YAML file at path and merges it over the defaults.
// A missing file at the default location is not an error; every value
// can still come from flags.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultFile {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 30
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return cfg, nil
}

// Lookback returns the lookback window as a duration.
func (c Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// CheckpointPath returns the location of the checkpoint file.
func (c Config) CheckpointPath() string {
	return filepath.Join(c.LocalDir, "gen_new_list_timestamp.txt")
}

// ListPath returns the location of the product id list.
func (c Config) ListPath() string {
	return filepath.Join(c.LocalDir, "gen_new_list_processed.txt")
}

// LockPath returns the location of the pipeline lock file.
func (c Config) LockPath() string {
	return filepath.Join(c.LocalDir, "sentinel-stac.lock")
}

// ValidateLister checks the settings the lister cannot run without.
func (c Config) ValidateLister() error {
	if c.SentinelHost == "" {
		return fmt.Errorf("sentinel host is not configured (set sentinel_host or --sentinel-host)")
	}
	if c.LocalDir == "" {
		return fmt.Errorf("local_dir is not configured")
	}
	return nil
}

// ValidateRegister checks the settings the publisher cannot run without.
func (c Config) ValidateRegister(push, save bool) error {
	if err := c.ValidateLister(); err != nil {
		return err
	}
	if push && c.StacHost == "" {
		return fmt.Errorf("stac host is not configured (set stac_host or --stac-host)")
	}
	if push && (c.SuccPrefix == "" || c.ErrPrefix == "") {
		return fmt.Errorf("succ_prefix and err_prefix must be configured when pushing")
	}
	if save && c.LocalDir == "" && c.S3.Bucket == "" {
		return fmt.Errorf("--save requires local_dir or an s3 bucket")
	}
	return nil
}
