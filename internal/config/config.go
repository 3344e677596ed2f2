// Package config loads the jobwatch configuration file.
package config

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/jobwatch/internal/model"
)

// ProviderType is the kind of job provider.
type ProviderType string

const (
	ProviderTypeHTTP   ProviderType = "http"
	ProviderTypeSQLite ProviderType = "sqlite"
	ProviderTypeFake   ProviderType = "fake"
)

// Config is the jobwatch configuration.
type Config struct {
	Provider Provider
	Polling  Polling
}

// Provider is the job provider configuration, only the block of the selected type is used.
type Provider struct {
	Type   ProviderType
	HTTP   HTTPProvider
	SQLite SQLiteProvider
	Fake   FakeProvider
}

// HTTPProvider is the configuration of a remote provider API.
type HTTPProvider struct {
	URL        string
	Token      string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	MaxRetries int
}

// SQLiteProvider is the configuration of the local provider.
type SQLiteProvider struct {
	DBPath string
}

// FakeProvider is the configuration of the in-memory demo provider.
type FakeProvider struct {
	ProgressStep int
}

// Polling is the polling configuration.
type Polling struct {
	Interval    time.Duration
	MaxRetries  int
	PageSize    int
	GraceWindow time.Duration
	SettleDelay time.Duration
}

// Default returns the default configuration, the SQLite provider database path is left empty.
func Default() Config {
	return Config{
		Provider: Provider{
			Type: ProviderTypeSQLite,
			HTTP: HTTPProvider{
				Timeout:    10 * time.Second,
				RateLimit:  2,
				Burst:      4,
				MaxRetries: 3,
			},
			Fake: FakeProvider{ProgressStep: 10},
		},
		Polling: Polling{
			Interval:    5 * time.Second,
			MaxRetries:  120,
			PageSize:    100,
			GraceWindow: 1500 * time.Millisecond,
			SettleDelay: 2 * time.Second,
		},
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	switch c.Provider.Type {
	case ProviderTypeHTTP:
		if c.Provider.HTTP.URL == "" {
			return fmt.Errorf("http provider url is required")
		}
		u, err := url.Parse(c.Provider.HTTP.URL)
		if err != nil {
			return fmt.Errorf("invalid http provider url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("http provider url scheme must be http or https, got: %q", u.Scheme)
		}
	case ProviderTypeSQLite:
		if c.Provider.SQLite.DBPath == "" {
			return fmt.Errorf("sqlite provider db_path is required")
		}
	case ProviderTypeFake:
		if c.Provider.Fake.ProgressStep < 0 {
			return fmt.Errorf("fake provider progress_step can't be negative")
		}
	default:
		return fmt.Errorf("unknown provider type %q", c.Provider.Type)
	}

	p := c.Polling
	if p.Interval <= 0 {
		return fmt.Errorf("polling interval must be positive, got: %s", p.Interval)
	}
	if p.MaxRetries <= 0 {
		return fmt.Errorf("polling max_retries must be positive, got: %d", p.MaxRetries)
	}
	if p.PageSize <= 0 {
		return fmt.Errorf("polling page_size must be positive, got: %d", p.PageSize)
	}
	if p.GraceWindow < 0 {
		return fmt.Errorf("polling grace_window can't be negative")
	}
	if p.SettleDelay < 0 {
		return fmt.Errorf("polling settle_delay can't be negative")
	}

	return nil
}

// YAMLLoader loads the configuration from YAML files.
type YAMLLoader struct {
	fs   fs.FS
	base Config
}

// NewYAMLLoader returns a new YAML configuration loader, the values missing on the files are
// taken from base.
func NewYAMLLoader(filesystem fs.FS, base Config) *YAMLLoader {
	return &YAMLLoader{fs: filesystem, base: base}
}

// Load loads the configuration file on top of the base configuration and validates it. A
// missing file returns an error wrapping fs.ErrNotExist.
func (l *YAMLLoader) Load(ctx context.Context, path string) (Config, error) {
	data, err := fs.ReadFile(l.fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return Config{}, ctx.Err()
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing YAML: %w: %w", model.ErrNotValid, err)
	}

	cfg := fc.merge(l.base)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w: %w", model.ErrNotValid, err)
	}

	return cfg, nil
}

// fileConfig is the YAML structure of the configuration file.
type fileConfig struct {
	Provider struct {
		Type string `yaml:"type"`
		HTTP struct {
			URL        string        `yaml:"url"`
			Token      string        `yaml:"token"`
			Timeout    time.Duration `yaml:"timeout"`
			RateLimit  float64       `yaml:"rate_limit"`
			Burst      int           `yaml:"burst"`
			MaxRetries int           `yaml:"max_retries"`
		} `yaml:"http"`
		SQLite struct {
			DBPath string `yaml:"db_path"`
		} `yaml:"sqlite"`
		Fake struct {
			ProgressStep *int `yaml:"progress_step"`
		} `yaml:"fake"`
	} `yaml:"provider"`
	Polling struct {
		Interval    time.Duration `yaml:"interval"`
		MaxRetries  int           `yaml:"max_retries"`
		PageSize    int           `yaml:"page_size"`
		GraceWindow time.Duration `yaml:"grace_window"`
		SettleDelay time.Duration `yaml:"settle_delay"`
	} `yaml:"polling"`
}

// merge sets the values present on the file over the base configuration.
func (f fileConfig) merge(base Config) Config {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, v time.Duration) {
		if v != 0 {
			*dst = v
		}
	}

	cfg := base
	if f.Provider.Type != "" {
		cfg.Provider.Type = ProviderType(f.Provider.Type)
	}
	setString(&cfg.Provider.HTTP.URL, f.Provider.HTTP.URL)
	setString(&cfg.Provider.HTTP.Token, f.Provider.HTTP.Token)
	setDuration(&cfg.Provider.HTTP.Timeout, f.Provider.HTTP.Timeout)
	if f.Provider.HTTP.RateLimit != 0 {
		cfg.Provider.HTTP.RateLimit = f.Provider.HTTP.RateLimit
	}
	setInt(&cfg.Provider.HTTP.Burst, f.Provider.HTTP.Burst)
	setInt(&cfg.Provider.HTTP.MaxRetries, f.Provider.HTTP.MaxRetries)
	setString(&cfg.Provider.SQLite.DBPath, f.Provider.SQLite.DBPath)
	if f.Provider.Fake.ProgressStep != nil {
		cfg.Provider.Fake.ProgressStep = *f.Provider.Fake.ProgressStep
	}

	setDuration(&cfg.Polling.Interval, f.Polling.Interval)
	setInt(&cfg.Polling.MaxRetries, f.Polling.MaxRetries)
	setInt(&cfg.Polling.PageSize, f.Polling.PageSize)
	setDuration(&cfg.Polling.GraceWindow, f.Polling.GraceWindow)
	setDuration(&cfg.Polling.SettleDelay, f.Polling.SettleDelay)

	return cfg
}
