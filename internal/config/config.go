// Package config loads paperdash settings.
//
// Settings come from a single file named by --config or PAPERDASH_CONFIG.
// Files ending in .json or .jsonc are read as JSON with comments; anything
// else as YAML. Environment variables override the file and command-line
// flags override both.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig  = "PAPERDASH_CONFIG"
	EnvURL     = "PAPERDASH_URL"
	EnvTimeout = "PAPERDASH_TIMEOUT"
)

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds every setting.
type Config struct {
	// BaseURL is the dashboard API, e.g. http://localhost:8080.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Timeout bounds every non-streaming request.
	Timeout Duration `yaml:"timeout" json:"timeout"`

	PaperPageSize   int      `yaml:"paper_page_size" json:"paper_page_size"`
	ArticlePageSize int      `yaml:"article_page_size" json:"article_page_size"`
	Debounce        Duration `yaml:"debounce" json:"debounce"`

	Cache CacheConfig `yaml:"cache" json:"cache"`
}

// CacheConfig configures the local paper cache.
type CacheConfig struct {
	// Dir defaults to $XDG_CACHE_HOME/paperdash.
	Dir      string   `yaml:"dir" json:"dir"`
	TTL      Duration `yaml:"ttl" json:"ttl"`
	Disabled bool     `yaml:"disabled" json:"disabled"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BaseURL:         "http://localhost:8080",
		Timeout:         Duration(300 * time.Second),
		PaperPageSize:   20,
		ArticlePageSize: 250,
		Debounce:        Duration(500 * time.Millisecond),
		Cache: CacheConfig{
			TTL: Duration(12 * time.Hour),
		},
	}
}

// Load reads the file at path (or $PAPERDASH_CONFIG when path is empty) over
// the defaults and applies environment overrides. No file at all is fine;
// a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = Duration(d)
	}
	return nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q is not an http(s) URL", c.BaseURL))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.PaperPageSize <= 0 {
		errs = append(errs, errors.New("paper_page_size must be positive"))
	}
	if c.ArticlePageSize <= 0 {
		errs = append(errs, errors.New("article_page_size must be positive"))
	}
	if c.Debounce < 0 {
		errs = append(errs, errors.New("debounce must not be negative"))
	}
	if c.Cache.TTL <= 0 && !c.Cache.Disabled {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration { return time.Duration(c.Timeout) }

// DebounceDuration returns Debounce as a time.Duration.
func (c *Config) DebounceDuration() time.Duration { return time.Duration(c.Debounce) }

// CacheTTL returns Cache.TTL as a time.Duration.
func (c *Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTL) }
