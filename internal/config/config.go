// Package config loads settings from an optional file, DAILYSTATS_*
// environment variables and built-in defaults, in increasing order of
// precedence: defaults < file < environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
)

const envPrefix = "DAILYSTATS"

type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Server    ServerConfig    `mapstructure:"server"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Retry     RetryConfig     `mapstructure:"retry"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Report    ReportConfig    `mapstructure:"report"`
	Log       LogConfig       `mapstructure:"log"`
	Catalog   catalog.Catalog `mapstructure:"catalog"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type IngestConfig struct {
	MaxInsertsPerTable int    `mapstructure:"max_inserts_per_table"`
	MaxInsertsPerRun   int    `mapstructure:"max_inserts_per_run"`
	Schedule           string `mapstructure:"schedule"`
	CryptoLimit        int    `mapstructure:"crypto_limit"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type ProvidersConfig struct {
	CovidTracking CovidTrackingConfig `mapstructure:"covidtracking"`
	CryptoCompare CryptoCompareConfig `mapstructure:"cryptocompare"`
	AlphaVantage  AlphaVantageConfig  `mapstructure:"alphavantage"`
}

type CovidTrackingConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type CryptoCompareConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Currency string `mapstructure:"currency"`
	Exchange string `mapstructure:"exchange"`
	Workers  int    `mapstructure:"workers"`
}

type AlphaVantageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	APIKey    string `mapstructure:"api_key"`
	Precision int32  `mapstructure:"precision"`
}

type ReportConfig struct {
	Dir      string `mapstructure:"dir"`
	Compress bool   `mapstructure:"compress"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel parses Level, falling back to info.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "db.sqlite")
	v.SetDefault("server.port", "8080")
	v.SetDefault("ingest.max_inserts_per_table", 100000)
	v.SetDefault("ingest.max_inserts_per_run", 100000)
	v.SetDefault("ingest.schedule", "@daily")
	v.SetDefault("ingest.crypto_limit", 365)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", "10s")
	v.SetDefault("retry.multiplier", 1.0)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("providers.covidtracking.endpoint", "https://covidtracking.com/api/v1/us/daily.json")
	v.SetDefault("providers.cryptocompare.endpoint", "https://min-api.cryptocompare.com/data/histoday")
	v.SetDefault("providers.cryptocompare.currency", "USD")
	v.SetDefault("providers.cryptocompare.exchange", "CCCAGG")
	v.SetDefault("providers.cryptocompare.workers", 4)
	v.SetDefault("providers.alphavantage.endpoint", "https://www.alphavantage.co/query")
	v.SetDefault("providers.alphavantage.api_key", "demo")
	v.SetDefault("providers.alphavantage.precision", 4)
	v.SetDefault("report.dir", "calculations")
	v.SetDefault("report.compress", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Loader owns the viper instance so the file can be re-read on change.
type Loader struct {
	v    *viper.Viper
	path string
}

// New reads path when it is not empty. A missing file is an error; no file
// at all means defaults and environment only.
func New(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return &Loader{v: v, path: path}, nil
}

// Load is New followed by Config.
func Load(path string) (Config, error) {
	l, err := New(path)
	if err != nil {
		return Config{}, err
	}
	return l.Config()
}

// Config decodes and validates the current settings. An empty catalog falls
// back to catalog.Default.
func (l *Loader) Config() (Config, error) {
	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if len(c.Catalog.Crypto) == 0 && len(c.Catalog.Stock) == 0 && len(c.Catalog.Covid) == 0 {
		c.Catalog = catalog.Default()
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Override sets key for the lifetime of the loader, above every other
// source. Command-line flags use it.
func (l *Loader) Override(key string, value any) {
	l.v.Set(key, value)
}

// Watch calls onChange with the re-read configuration every time the file
// changes. Invalid edits are logged and skipped. Without a file it does
// nothing.
func (l *Loader) Watch(onChange func(Config)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		c, err := l.Config()
		if err != nil {
			slog.Error("config reload rejected", "file", e.Name, "error", err)
			return
		}
		slog.Info("config reloaded", "file", e.Name, "op", e.Op.String())
		onChange(c)
	})
	l.v.WatchConfig()
}

func (c Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("db.driver must be sqlite or postgres, got %q", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("db.dsn is required"))
	}
	if c.Ingest.MaxInsertsPerTable < 0 || c.Ingest.MaxInsertsPerRun < 0 {
		errs = append(errs, errors.New("ingest caps must not be negative"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if err := c.Catalog.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
