package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/semindex/internal/domain/search/mode"
	"github.com/kailas-cloud/semindex/internal/domain/search/request"
)

// Config holds the semindex client configuration.
type Config struct {
	API          APIConfig          `yaml:"api"`
	Search       SearchConfig       `yaml:"search"`
	ContentCache ContentCacheConfig `yaml:"content_cache"`
	HTTP         HTTPConfig         `yaml:"http"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// APIConfig holds remote search service settings.
type APIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// SearchConfig holds coordinator settings.
type SearchConfig struct {
	Mode       string `yaml:"mode"` // chunks (default), docs
	Limit      int    `yaml:"limit"`
	DebounceMs int    `yaml:"debounce_ms"`
}

// ContentCacheConfig holds the optional shared content cache settings.
type ContentCacheConfig struct {
	Driver           string   `yaml:"driver"` // "" (disabled), redis
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// HTTPConfig holds view server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads <env>.yaml from the first config directory that has it.
// A .env file in the working directory, if present, is loaded first so its
// variables are visible to ${VAR} references.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	path, err := locate(env + ".yaml")
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML with ${VAR} substitution, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(substituteEnv(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv picks the config environment: SEMINDEX_ENV, then ENV, then "local".
func GetEnv() string {
	for _, key := range []string{"SEMINDEX_ENV", "ENV"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = 30
	}
	if c.API.RequestsPerSecond > 0 && c.API.Burst <= 0 {
		c.API.Burst = 1
	}
	if c.Search.Mode == "" {
		c.Search.Mode = string(mode.Chunks)
	}
	if c.Search.Limit == 0 {
		c.Search.Limit = request.DefaultLimit
	}
	if c.Search.DebounceMs <= 0 {
		c.Search.DebounceMs = 300
	}
	if c.ContentCache.KeyPrefix == "" {
		c.ContentCache.KeyPrefix = "semindex:content:"
	}
	if c.ContentCache.ReadinessTimeout <= 0 {
		c.ContentCache.ReadinessTimeout = 10
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8090
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must not be negative, got %v", c.API.RequestsPerSecond)
	}
	if !mode.Mode(c.Search.Mode).IsValid() {
		return fmt.Errorf("search.mode must be %q or %q, got %q", mode.Chunks, mode.Docs, c.Search.Mode)
	}
	if c.Search.Limit < request.MinLimit || c.Search.Limit > request.MaxLimit {
		return fmt.Errorf("search.limit must be between %d and %d, got %d",
			request.MinLimit, request.MaxLimit, c.Search.Limit)
	}
	switch c.ContentCache.Driver {
	case "":
	case "redis":
		if len(c.ContentCache.Addrs) == 0 {
			return fmt.Errorf("content_cache.addrs is required for driver %q", c.ContentCache.Driver)
		}
	default:
		return fmt.Errorf("content_cache.driver must be empty or \"redis\", got %q", c.ContentCache.Driver)
	}
	if c.ContentCache.TTLSec < 0 {
		return fmt.Errorf("content_cache.ttl_sec must not be negative, got %d", c.ContentCache.TTLSec)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	return nil
}

// Timeout returns the remote call timeout.
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Debounce returns the search-as-you-type quiet period.
func (c *SearchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// TTL returns the shared cache entry lifetime; zero means no expiry.
func (c *ContentCacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// configDirs lists where config files are looked up, in priority order.
func configDirs() []string {
	var dirs []string
	if d := os.Getenv("SEMINDEX_CONFIG_DIR"); d != "" {
		dirs = append(dirs, d)
	}
	dirs = append(dirs, "config")
	if d, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(d, "semindex"))
	}
	// Source checkout, for `go run` from another directory.
	if _, file, _, ok := runtime.Caller(0); ok {
		dirs = append(dirs, filepath.Join(filepath.Dir(file), "..", "..", "config"))
	}
	return dirs
}

func locate(name string) (string, error) {
	dirs := configDirs()
	for _, d := range dirs {
		p := filepath.Join(d, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("config %s not found in %s", name, strings.Join(dirs, ", "))
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// substituteEnv expands ${VAR} and ${VAR:-fallback}. An unset or empty VAR
// without a fallback becomes the empty string.
func substituteEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		m := envRef.FindSubmatch(ref)
		if v := os.Getenv(string(m[1])); v != "" {
			return []byte(v)
		}
		return m[3]
	})
}
