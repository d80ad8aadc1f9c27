// Package config loads and validates scope-dorker configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrCreated is returned by Load when a default config file was written and
// needs credentials before the tool can run.
var ErrCreated = errors.New("config: default file created")

// Config holds the resolved runtime configuration.
type Config struct {
	HackerOne HackerOneConfig `yaml:"hackerone"`
	Google    GoogleConfig    `yaml:"google"`
	HTTP      HTTPConfig      `yaml:"http"`
	Quota     QuotaConfig     `yaml:"quota"`
}

// HackerOneConfig configures the scope-listing API.
type HackerOneConfig struct {
	Username          string `yaml:"username"`
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	PageSize          int    `yaml:"page_size"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	CacheSize         int    `yaml:"cache_size"`
}

// GoogleConfig configures the search API and its ceilings.
type GoogleConfig struct {
	APIKey             string        `yaml:"api_key"`
	CSEID              string        `yaml:"cse_id"`
	BaseURL            string        `yaml:"base_url"`
	ProgramResultLimit int           `yaml:"program_result_limit"`
	SearchLimit        int           `yaml:"search_limit"`
	RequestsPerMinute  int           `yaml:"requests_per_minute"`
	BackoffBase        time.Duration `yaml:"backoff_base"`
	MaxAttempts        int           `yaml:"max_attempts"`
}

// HTTPConfig configures the shared transport.
type HTTPConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`
	UserAgent       string        `yaml:"user_agent"`
}

// QuotaConfig selects where the daily search count is persisted.
type QuotaConfig struct {
	Backend string `yaml:"backend"` // sqlite or json
	Path    string `yaml:"path"`
}

// DefaultConfig returns defaults matching the public API limits.
func DefaultConfig() *Config {
	return &Config{
		HackerOne: HackerOneConfig{
			Username:          "<insert-your-h1-username>",
			APIKey:            "<insert-your-h1-api-key>",
			BaseURL:           "https://api.hackerone.com",
			PageSize:          100,
			RequestsPerMinute: 600,
			CacheSize:         256,
		},
		Google: GoogleConfig{
			APIKey:             "<insert-your-google-api-key>",
			CSEID:              "<insert-your-google-cse-id>",
			BaseURL:            "https://www.googleapis.com",
			ProgramResultLimit: 20,
			SearchLimit:        1000,
			RequestsPerMinute:  100,
			BackoffBase:        2 * time.Second,
			MaxAttempts:        5,
		},
		HTTP: HTTPConfig{
			Timeout:         15 * time.Second,
			MaxRetries:      3,
			RetryBackoff:    2 * time.Second,
			RetryBackoffMax: 30 * time.Second,
			UserAgent:       "scope-dorker/1.0",
		},
		Quota: QuotaConfig{
			Backend: "sqlite",
			Path:    "",
		},
	}
}

// DefaultDir returns ~/.config/scope-dorker.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "scope-dorker"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads path over the defaults. A missing file is created with the
// defaults and ErrCreated is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w at %s, update it with your API keys", ErrCreated, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Quota.Path == "" {
		cfg.Quota.Path = defaultQuotaPath(filepath.Dir(path), cfg.Quota.Backend)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides credentials and ceilings from the environment.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("SCOPE_DORKER_H1_USERNAME"); ok {
		c.HackerOne.Username = v
	}
	if v, ok := EnvString("SCOPE_DORKER_H1_API_KEY"); ok {
		c.HackerOne.APIKey = v
	}
	if v, ok := EnvString("SCOPE_DORKER_GOOGLE_API_KEY"); ok {
		c.Google.APIKey = v
	}
	if v, ok := EnvString("SCOPE_DORKER_GOOGLE_CSE_ID"); ok {
		c.Google.CSEID = v
	}
	if v, ok, err := EnvInt("SCOPE_DORKER_RESULT_LIMIT"); err != nil {
		return err
	} else if ok {
		c.Google.ProgramResultLimit = v
	}
	if v, ok, err := EnvInt("SCOPE_DORKER_SEARCH_LIMIT"); err != nil {
		return err
	} else if ok {
		c.Google.SearchLimit = v
	}
	if v, ok, err := EnvDuration("SCOPE_DORKER_HTTP_TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.HTTP.Timeout = v
	}
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateURL("hackerone base URL", c.HackerOne.BaseURL); err != nil {
		return err
	}
	if err := validateURL("google base URL", c.Google.BaseURL); err != nil {
		return err
	}
	if c.HackerOne.PageSize <= 0 || c.HackerOne.PageSize > 100 {
		return fmt.Errorf("hackerone page size must be between 1 and 100")
	}
	if c.HackerOne.RequestsPerMinute <= 0 {
		return fmt.Errorf("hackerone requests per minute must be positive")
	}
	if c.HackerOne.CacheSize <= 0 {
		return fmt.Errorf("hackerone cache size must be positive")
	}
	if c.Google.ProgramResultLimit <= 0 {
		return fmt.Errorf("program result limit must be positive")
	}
	if c.Google.SearchLimit <= 0 {
		return fmt.Errorf("search limit must be positive")
	}
	if c.Google.RequestsPerMinute <= 0 {
		return fmt.Errorf("google requests per minute must be positive")
	}
	if c.Google.BackoffBase <= 0 {
		return fmt.Errorf("google backoff base must be positive")
	}
	if c.Google.MaxAttempts <= 0 {
		return fmt.Errorf("google max attempts must be positive")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.HTTP.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.HTTP.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.HTTP.RetryBackoffMax > 0 && c.HTTP.RetryBackoff > c.HTTP.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.HTTP.RetryBackoff, c.HTTP.RetryBackoffMax)
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Quota.Backend != "sqlite" && c.Quota.Backend != "json" {
		return fmt.Errorf("quota backend must be sqlite or json")
	}
	return nil
}

// ValidateHackerOne checks the scope-listing credentials are filled in.
func (c *Config) ValidateHackerOne() error {
	if placeholder(c.HackerOne.Username) || placeholder(c.HackerOne.APIKey) {
		return fmt.Errorf("hackerone username and api key must be set")
	}
	return nil
}

// ValidateGoogle checks the search credentials are filled in.
func (c *Config) ValidateGoogle() error {
	if placeholder(c.Google.APIKey) || placeholder(c.Google.CSEID) {
		return fmt.Errorf("google api key and cse id must be set")
	}
	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}

func placeholder(v string) bool {
	return v == "" || (len(v) > 1 && v[0] == '<' && v[len(v)-1] == '>')
}

func defaultQuotaPath(dir, backend string) string {
	if backend == "json" {
		return filepath.Join(dir, "search-count.json")
	}
	return filepath.Join(dir, "search-count.db")
}
