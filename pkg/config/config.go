// Package config provides the job configuration surface for parquio. A
// config can come from a YAML file, PARQUIO_* environment variables, or CLI
// flags; flags win. The transcoding engine itself only sees the validated
// struct.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/parquio/parquio/pkg/xerrors"
)

// Placeholder styles for parameterized statements.
const (
	// PlaceholderQuestion renders parameters as `?`.
	PlaceholderQuestion = "question"
	// PlaceholderDollar renders parameters as `$1`, `$2`, ...
	PlaceholderDollar = "dollar"
)

// Config holds everything a single transcode job needs beyond the open
// connection handles.
type Config struct {
	// Driver is the database/sql driver name (pgx, mysql, snowflake).
	Driver string `mapstructure:"driver" json:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `mapstructure:"dsn" json:"-"`

	// Query is the export statement; Params are its positional parameters.
	// Both may come from the config file or be given as CLI arguments.
	Query  string   `mapstructure:"query" json:"query,omitempty"`
	Params []string `mapstructure:"params" json:"params,omitempty"`
	// Table is the import target table.
	Table string `mapstructure:"table" json:"table,omitempty"`
	// OutputPath and InputPath are the parquet file paths of the export
	// and import directions.
	OutputPath string `mapstructure:"output_path" json:"output_path,omitempty"`
	InputPath  string `mapstructure:"input_path" json:"input_path,omitempty"`

	// BatchSize is the number of rows per in-memory chunk and per parquet
	// row group.
	BatchSize int `mapstructure:"batch_size" json:"batch_size"`
	// BatchesPerFile splits parquet output into numbered files every N
	// batches. Zero writes a single file.
	BatchesPerFile int `mapstructure:"batches_per_file" json:"batches_per_file"`
	// Compression selects the parquet page compression: none, snappy,
	// gzip or zstd.
	Compression string `mapstructure:"compression" json:"compression"`
	// Placeholder selects the parameter placeholder style for the import
	// direction. Empty derives it from the driver.
	Placeholder string `mapstructure:"placeholder" json:"placeholder,omitempty"`

	// LogLevel is the zap level name.
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	// LogEncoding is json or console.
	LogEncoding string `mapstructure:"log_encoding" json:"log_encoding"`
}

// Default returns a config with the documented defaults applied.
func Default() *Config {
	return &Config{
		BatchSize:   500,
		Compression: "snappy",
		LogLevel:    "info",
		LogEncoding: "console",
	}
}

// Load reads a config file (optional) and the environment on top of the
// defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	cfg := Default()
	v.SetDefault("batch_size", cfg.BatchSize)
	v.SetDefault("batches_per_file", cfg.BatchesPerFile)
	v.SetDefault("compression", cfg.Compression)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_encoding", cfg.LogEncoding)

	v.SetEnvPrefix("PARQUIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about, so bind
	// every key explicitly to make PARQUIO_* visible to Unmarshal.
	for _, key := range []string{
		"driver", "dsn", "query", "table", "output_path", "input_path",
		"batch_size", "batches_per_file", "compression", "placeholder",
		"log_level", "log_encoding",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, xerrors.Wrapf(err, xerrors.ErrorTypeConfig,
				"failed to bind environment for %s", key)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, xerrors.Wrapf(err, xerrors.ErrorTypeConfig,
				"failed to read config file %s", path)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeConfig, "failed to unmarshal config")
	}
	return cfg, nil
}

// Validate rejects configs the engine cannot run with.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return xerrors.Newf(xerrors.ErrorTypeConfig, "batch_size must be positive, got %d", c.BatchSize)
	}
	if c.BatchesPerFile < 0 {
		return xerrors.Newf(xerrors.ErrorTypeConfig, "batches_per_file must not be negative, got %d", c.BatchesPerFile)
	}
	switch c.Compression {
	case "", "none", "snappy", "gzip", "zstd":
	default:
		return xerrors.Newf(xerrors.ErrorTypeConfig, "unsupported compression %q", c.Compression)
	}
	switch c.Placeholder {
	case "", PlaceholderQuestion, PlaceholderDollar:
	default:
		return xerrors.Newf(xerrors.ErrorTypeConfig, "unsupported placeholder style %q", c.Placeholder)
	}
	return nil
}

// PlaceholderStyle resolves the effective placeholder style for the config's
// driver.
func (c *Config) PlaceholderStyle() string {
	if c.Placeholder != "" {
		return c.Placeholder
	}
	if c.Driver == "pgx" {
		return PlaceholderDollar
	}
	return PlaceholderQuestion
}
