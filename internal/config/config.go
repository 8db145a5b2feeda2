package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the FabLab search API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Providers ProvidersConfig `yaml:"providers"`
	Relevance RelevanceConfig `yaml:"relevance"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the curated store connection. An empty URL runs without curated jobs.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// CacheConfig holds the response cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLHours         int      `yaml:"ttl_hours"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	ClientCacheSec   int      `yaml:"client_cache_sec"` // 0 disables client-side caching
}

// RateLimitConfig holds the per-client limiter settings.
type RateLimitConfig struct {
	WindowSec   int `yaml:"window_sec"`
	MaxRequests int `yaml:"max_requests"`
}

// ProvidersConfig holds the external job provider settings.
type ProvidersConfig struct {
	TimeoutSec int           `yaml:"timeout_sec"`
	Adzuna     AdzunaConfig  `yaml:"adzuna"`
	JSearch    JSearchConfig `yaml:"jsearch"`
}

// ThrottleConfig bounds the outbound request rate to one provider.
type ThrottleConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// AdzunaConfig holds Adzuna credentials. Missing credentials skip the provider.
type AdzunaConfig struct {
	AppID          string         `yaml:"app_id"`
	AppKey         string         `yaml:"app_key"`
	Country        string         `yaml:"country"`
	BaseURL        string         `yaml:"base_url"`
	ResultsPerPage int            `yaml:"results_per_page"`
	Throttle       ThrottleConfig `yaml:"throttle"`
}

// JSearchConfig holds RapidAPI JSearch credentials. A missing key skips the provider.
type JSearchConfig struct {
	APIKey   string         `yaml:"api_key"`
	Host     string         `yaml:"host"`
	BaseURL  string         `yaml:"base_url"`
	Throttle ThrottleConfig `yaml:"throttle"`
}

// RelevanceConfig holds the domain vocabulary settings.
type RelevanceConfig struct {
	RefreshIntervalSec int      `yaml:"refresh_interval_sec"`
	ExtraTerms         []string `yaml:"extra_terms"`
	NegativeTerms      []string `yaml:"negative_terms"`
	// SourceQueries feed dynamic terms when no database is configured.
	SourceQueries []string `yaml:"source_queries"`
}

// SearchConfig holds pipeline settings.
type SearchConfig struct {
	CuratedLimit int `yaml:"curated_limit"`
}

// ProviderTimeout returns the per-provider call timeout.
func (p ProvidersConfig) ProviderTimeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ClientCacheTTL returns the client-side cache lifetime for remote GETs.
func (c CacheConfig) ClientCacheTTL() time.Duration {
	return time.Duration(c.ClientCacheSec) * time.Second
}

// Window returns the limiter window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSec) * time.Second
}

// RefreshInterval returns the vocabulary refresh interval.
func (r RelevanceConfig) RefreshInterval() time.Duration {
	return time.Duration(r.RefreshIntervalSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file, if present, is loaded first; variables already set in the process win.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML after env expansion, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 4
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "fablab:"
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 60
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = 60
	}
	if c.Providers.TimeoutSec <= 0 {
		c.Providers.TimeoutSec = 10
	}
	if c.Relevance.RefreshIntervalSec <= 0 {
		c.Relevance.RefreshIntervalSec = 120
	}
	if c.Search.CuratedLimit <= 0 {
		c.Search.CuratedLimit = 500
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be \"memory\" or \"redis\", got %q", c.Cache.Driver)
	}
	for name, t := range map[string]ThrottleConfig{
		"adzuna":  c.Providers.Adzuna.Throttle,
		"jsearch": c.Providers.JSearch.Throttle,
	} {
		if t.RequestsPerSecond < 0 {
			return fmt.Errorf("providers.%s.throttle.requests_per_second must not be negative", name)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
