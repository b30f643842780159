// Package config loads dormcore settings from defaults, an optional .env
// file, an optional YAML file and DORMCORE_* environment variables, in that
// order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "DORMCORE_"

// Config is the full runtime configuration.
type Config struct {
	DataDir string   `yaml:"data_dir"`
	Seed    bool     `yaml:"seed"`
	Storage Storage  `yaml:"storage"`
	Report  Report   `yaml:"report"`
	Export  Export   `yaml:"export"`
	Log     Log      `yaml:"log"`
	Metrics string   `yaml:"metrics"` // none|expvar|prometheus
	Trace   string   `yaml:"trace"`   // none|stderr
	Redis   Redis    `yaml:"redis"`
	S3      S3Config `yaml:"s3"`
}

// Storage selects the entity backend.
type Storage struct {
	Driver      string `yaml:"driver"` // text|sqlite|postgres|memory
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Report configures the report cache.
type Report struct {
	TTL   time.Duration `yaml:"ttl"`
	Cache string        `yaml:"cache"` // memory|redis
}

// Export configures where exported files are written.
type Export struct {
	Driver string `yaml:"driver"` // fs|s3|memory
	Root   string `yaml:"root"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json|console
}

// Redis addresses the shared report cache.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// S3Config addresses the export bucket.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir: "data",
		Seed:    true,
		Storage: Storage{Driver: "text", SQLitePath: "data/dormcore.db", PostgresDSN: "postgres://localhost/dormcore?sslmode=disable"},
		Report:  Report{TTL: 30 * time.Minute, Cache: "memory"},
		Export:  Export{Driver: "fs", Root: "reports"},
		Log:     Log{Level: "info", Format: "console"},
		Metrics: "none",
		Trace:   "none",
		Redis:   Redis{Addr: "localhost:6379", Prefix: "dormcore:report:"},
		S3:      S3Config{Region: "us-east-1"},
	}
}

// Load builds the configuration. envFile and path are optional; a missing
// file at either location is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if envFile != "" {
		// godotenv.Load never overrides variables already set.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

type binding struct {
	key string
	set func(*Config, string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error { *dst(c) = v; return nil }
}

func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

var bindings = []binding{
	{"DATA_DIR", str(func(c *Config) *string { return &c.DataDir })},
	{"SEED", boolean(func(c *Config) *bool { return &c.Seed })},
	{"STORAGE_DRIVER", str(func(c *Config) *string { return &c.Storage.Driver })},
	{"SQLITE_PATH", str(func(c *Config) *string { return &c.Storage.SQLitePath })},
	{"POSTGRES_DSN", str(func(c *Config) *string { return &c.Storage.PostgresDSN })},
	{"REPORT_TTL", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Report.TTL = d
		return nil
	}},
	{"REPORT_CACHE", str(func(c *Config) *string { return &c.Report.Cache })},
	{"EXPORT_DRIVER", str(func(c *Config) *string { return &c.Export.Driver })},
	{"EXPORT_ROOT", str(func(c *Config) *string { return &c.Export.Root })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
	{"METRICS", str(func(c *Config) *string { return &c.Metrics })},
	{"TRACE", str(func(c *Config) *string { return &c.Trace })},
	{"REDIS_ADDR", str(func(c *Config) *string { return &c.Redis.Addr })},
	{"REDIS_PASSWORD", str(func(c *Config) *string { return &c.Redis.Password })},
	{"REDIS_DB", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Redis.DB = n
		return nil
	}},
	{"REDIS_PREFIX", str(func(c *Config) *string { return &c.Redis.Prefix })},
	{"S3_BUCKET", str(func(c *Config) *string { return &c.S3.Bucket })},
	{"S3_REGION", str(func(c *Config) *string { return &c.S3.Region })},
	{"S3_ENDPOINT", str(func(c *Config) *string { return &c.S3.Endpoint })},
	{"S3_PREFIX", str(func(c *Config) *string { return &c.S3.Prefix })},
	{"S3_PATH_STYLE", boolean(func(c *Config) *bool { return &c.S3.PathStyle })},
}

func applyEnv(cfg *Config) error {
	for _, b := range bindings {
		v, ok := os.LookupEnv(EnvPrefix + b.key)
		if !ok {
			continue
		}
		if err := b.set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, "|"))
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	return errors.Join(
		oneOf("storage.driver", c.Storage.Driver, "text", "sqlite", "postgres", "memory"),
		oneOf("report.cache", c.Report.Cache, "memory", "redis"),
		oneOf("export.driver", c.Export.Driver, "fs", "s3", "memory"),
		oneOf("log.format", c.Log.Format, "json", "console"),
		oneOf("metrics", c.Metrics, "none", "expvar", "prometheus"),
		oneOf("trace", c.Trace, "none", "stderr"),
		positive("report.ttl", c.Report.TTL),
	)
}

func positive(field string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}
