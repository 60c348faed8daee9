package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/score"
)

// Search log backends.
const (
	SearchLogMemory   = "memory"
	SearchLogBadger   = "badger"
	SearchLogPostgres = "postgres"
)

// Config holds the autosearch service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SearchLog SearchLogConfig `yaml:"search_log"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Scoring   score.Weights   `yaml:"scoring"`
	Diversity DiversityConfig `yaml:"diversity"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Lexicon   LexiconConfig   `yaml:"lexicon"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig holds cross-origin settings for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAgeSec      int      `yaml:"max_age_sec"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RedisConfig holds vector index and cache connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds search history and document counter settings.
// An empty DSN disables postgres.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// SearchLogConfig selects and tunes the search log backend.
type SearchLogConfig struct {
	Backend        string `yaml:"backend"` // memory, badger, postgres (default: memory)
	Capacity       int    `yaml:"capacity"`
	BadgerDir      string `yaml:"badger_dir"`
	BadgerInMemory bool   `yaml:"badger_in_memory"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	Provider         string          `yaml:"provider"`
	APIKey           string          `yaml:"api_key"`
	BaseURL          string          `yaml:"base_url"`
	Model            string          `yaml:"model"`
	Dimensions       int             `yaml:"dimensions"`
	QueryInstruction string          `yaml:"query_instruction"`
	TimeoutSec       int             `yaml:"timeout_sec"`
	Cache            CacheConfig     `yaml:"cache"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
	TTLSec  int    `yaml:"ttl_sec"` // 0 = no expiry
}

// RateLimitConfig holds the outbound embedding rate limit. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// IndexConfig holds the vector index settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	Prefix          string `yaml:"prefix"`
	Algorithm       string `yaml:"algorithm"` // HNSW, FLAT
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// RetrievalConfig holds retrieval sizing, post-filter tolerance and retry settings.
type RetrievalConfig struct {
	TopK      int         `yaml:"top_k"`
	MaxTopK   int         `yaml:"max_top_k"`
	Overfetch int         `yaml:"overfetch"`
	Tolerance float64     `yaml:"tolerance"`
	YearSlack *int        `yaml:"year_slack"`
	Retry     RetryConfig `yaml:"retry"`
}

// RetryConfig holds retrieval retry settings.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	AttemptTimeoutMs int `yaml:"attempt_timeout_ms"`
	InitialBackoffMs int `yaml:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms"`
}

// DiversityConfig holds source dominance settings.
type DiversityConfig struct {
	Threshold int `yaml:"threshold"`
}

// AnalyticsConfig holds report thresholds.
type AnalyticsConfig struct {
	NoisyThreshold float64 `yaml:"noisy_threshold"`
	MinSearches    int     `yaml:"min_searches"`
	MaxDocuments   int     `yaml:"max_documents"`
	WindowDays     int     `yaml:"window_days"`
}

// LexiconConfig points at the vocabulary tables. An empty path uses the built-in table.
type LexiconConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML with ${VAR} expansion, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	cfg := Config{Scoring: score.DefaultWeights()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
//
//nolint:gocyclo // flat list of defaults
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
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 10
	}
	if c.SearchLog.Backend == "" {
		c.SearchLog.Backend = SearchLogMemory
	}
	if c.SearchLog.Capacity <= 0 {
		c.SearchLog.Capacity = 10_000
	}
	if c.SearchLog.WriteTimeoutMs <= 0 {
		c.SearchLog.WriteTimeoutMs = 2000
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.Cache.Prefix == "" {
		c.Embedding.Cache.Prefix = "autosearch:emb:"
	}
	if c.Embedding.RateLimit.Burst <= 0 {
		c.Embedding.RateLimit.Burst = 5
	}
	if c.Index.Name == "" {
		c.Index.Name = "idx:listings"
	}
	if c.Index.Prefix == "" {
		c.Index.Prefix = "listing:"
	}
	if c.Index.Algorithm == "" {
		c.Index.Algorithm = "HNSW"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 20
	}
	if c.Retrieval.MaxTopK <= 0 {
		c.Retrieval.MaxTopK = 50
	}
	if c.Retrieval.Overfetch <= 0 {
		c.Retrieval.Overfetch = 3
	}
	if c.Retrieval.Tolerance <= 0 {
		c.Retrieval.Tolerance = 0.25
	}
	if c.Retrieval.YearSlack == nil {
		slack := 1
		c.Retrieval.YearSlack = &slack
	}
	if c.Retrieval.Retry.MaxAttempts <= 0 {
		c.Retrieval.Retry.MaxAttempts = 3
	}
	if c.Retrieval.Retry.AttemptTimeoutMs <= 0 {
		c.Retrieval.Retry.AttemptTimeoutMs = 2000
	}
	if c.Retrieval.Retry.InitialBackoffMs <= 0 {
		c.Retrieval.Retry.InitialBackoffMs = 100
	}
	if c.Retrieval.Retry.MaxBackoffMs <= 0 {
		c.Retrieval.Retry.MaxBackoffMs = 1000
	}
	if c.Diversity.Threshold <= 0 {
		c.Diversity.Threshold = 10
	}
	if c.Analytics.NoisyThreshold <= 0 {
		c.Analytics.NoisyThreshold = 0.5
	}
	if c.Analytics.MinSearches <= 0 {
		c.Analytics.MinSearches = 3
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}
	}
	if c.CORS.MaxAgeSec <= 0 {
		c.CORS.MaxAgeSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	switch c.SearchLog.Backend {
	case SearchLogMemory:
	case SearchLogBadger:
		if c.SearchLog.BadgerDir == "" && !c.SearchLog.BadgerInMemory {
			return fmt.Errorf("search_log.badger_dir is required for the badger backend")
		}
	case SearchLogPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres search log backend")
		}
	default:
		return fmt.Errorf("search_log.backend must be memory, badger or postgres, got %q", c.SearchLog.Backend)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Index.Algorithm {
	case "HNSW", "FLAT":
	default:
		return fmt.Errorf("index.algorithm must be HNSW or FLAT, got %q", c.Index.Algorithm)
	}
	if c.Retrieval.TopK > c.Retrieval.MaxTopK {
		return fmt.Errorf("retrieval.top_k (%d) must not exceed retrieval.max_top_k (%d)",
			c.Retrieval.TopK, c.Retrieval.MaxTopK)
	}
	if c.Retrieval.Tolerance > 1 {
		return fmt.Errorf("retrieval.tolerance must be in (0,1], got %g", c.Retrieval.Tolerance)
	}
	if s := c.Retrieval.YearSlack; s != nil && *s < 0 {
		return fmt.Errorf("retrieval.year_slack must not be negative, got %d", *c.Retrieval.YearSlack)
	}
	if c.Analytics.NoisyThreshold > 1 {
		return fmt.Errorf("analytics.noisy_threshold must be in (0,1], got %g", c.Analytics.NoisyThreshold)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

// WriteTimeout returns the search log write budget.
func (c SearchLogConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

// Timeout returns the per-request embedding timeout.
func (c EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// TTL returns the embedding cache expiry. Zero means no expiry.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
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
