package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen       = "127.0.0.1:8080"
	DefaultTimezone     = "Europe/Madrid"
	DefaultRefreshCron  = "0 * * * *"
	DefaultHorizonDays  = 365
	DefaultBackfillDays = 365
	DefaultCacheDir     = "./var/feed-cache"
	DefaultLogLevel     = "info"

	// RefreshOff as the refresh value disables scheduled reloads.
	RefreshOff = "off"
)

// SourceConfig describes one place festivals are loaded from.
type SourceConfig struct {
	// ID is an internal identifier used in logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// Path is a local file. Takes precedence over URL.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// URL is fetched over HTTP(S) with conditional revalidation.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Format is "records" (default) or "ics".
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for `serve`.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone decides what "today" is for concluded/ongoing checks.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron spec for reloading all sources while serving.
	// Empty or "off" disables scheduled reloads.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Watch reloads when a local source file changes.
	Watch bool `yaml:"watch" json:"watch"`

	// Strict aborts a load on the first malformed record. When false,
	// malformed records are logged and skipped.
	Strict bool `yaml:"strict" json:"strict"`

	// HorizonDays / BackfillDays bound recurring ICS editions around today.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// CacheDir stores revalidation metadata for remote sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       DefaultListen,
		Timezone:     DefaultTimezone,
		LogLevel:     DefaultLogLevel,
		RefreshCron:  DefaultRefreshCron,
		Watch:        false,
		Strict:       true,
		HorizonDays:  DefaultHorizonDays,
		BackfillDays: DefaultBackfillDays,
		CacheDir:     DefaultCacheDir,
		Sources: []SourceConfig{
			{ID: "festivals", Name: "Festivals", Path: "festivals.csv", Format: "records"},
		},
	}
}

// Normalize fills in missing values so partially written files still work.
// Strict and Watch have meaningful zero values and are left alone.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	// An empty refresh, or "off", disables scheduled reloads.
	c.RefreshCron = strings.TrimSpace(c.RefreshCron)
	if strings.EqualFold(c.RefreshCron, RefreshOff) {
		c.RefreshCron = ""
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		s.Format = strings.ToLower(strings.TrimSpace(s.Format))
		if s.Format == "" {
			s.Format = "records"
		}
		if s.ID == "" {
			switch {
			case s.Name != "":
				s.ID = s.Name
			case s.Path != "":
				s.ID = filepath.Base(s.Path)
			default:
				s.ID = fmt.Sprintf("source-%d", i+1)
			}
		}
	}
}

// Validate reports configuration that Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	for _, s := range c.Sources {
		if s.Path == "" && s.URL == "" {
			errs = append(errs, fmt.Errorf("source %q: path or url is required", s.ID))
		}
		if s.Format != "records" && s.Format != "ics" {
			errs = append(errs, fmt.Errorf("source %q: unknown format %q", s.ID, s.Format))
		}
	}
	return errors.Join(errs...)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 perms and returned.
//   - Otherwise the YAML is unmarshaled over the defaults, normalized and
//     validated. Relative source paths resolve against the config's
//     directory.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.resolvePaths(filepath.Dir(path))
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Sources = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))

	return cfg, nil
}

func (c *Config) resolvePaths(base string) {
	for i := range c.Sources {
		p := c.Sources[i].Path
		if p != "" && !filepath.IsAbs(p) {
			c.Sources[i].Path = filepath.Join(base, p)
		}
	}
	if c.CacheDir != "" && !filepath.IsAbs(c.CacheDir) {
		c.CacheDir = filepath.Join(base, c.CacheDir)
	}
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".festagenda-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
