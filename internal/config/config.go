package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the querie API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	Sources   SourcesConfig   `yaml:"sources"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
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
	// APIKeys enables Bearer auth when non-empty. Health and metrics stay open.
	APIKeys []string `yaml:"api_keys"`
}

// DatabaseConfig holds Redis connection settings. The store backs the paper
// vector index, the embedding cache, and inbound rate-limit counters.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// CacheTTLHours is how long cached embeddings live. 0 disables expiry.
	CacheTTLHours int `yaml:"cache_ttl_hours"`
}

// LLMConfig holds chat model settings shared by the query validator and the
// web-evidence summarizer.
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ValidatorModel string `yaml:"validator_model"`
	SummaryModel   string `yaml:"summary_model"`
}

// WebSearchConfig holds web search provider settings.
type WebSearchConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	NumResults int    `yaml:"num_results"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SourcesConfig maps a provider id (arxiv, open_alex, pubmed, crossref,
// semantic_scholar) to its connector settings.
type SourcesConfig map[string]SourceConfig

// SourceConfig holds per-provider connector settings.
type SourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Email is sent to polite-pool providers (OpenAlex, Crossref, PubMed).
	Email string `yaml:"email"`
	// PaceMS is the minimum delay before each outbound call, in milliseconds.
	PaceMS int `yaml:"pace_ms"`
	// TimeoutSec caps one provider request. Kept well under the provider's
	// latency tail so a slow source cannot stall the whole search.
	TimeoutSec     int `yaml:"timeout_sec"`
	MaxResults     int `yaml:"max_results"`
	MinAbstractLen int `yaml:"min_abstract_len"`
}

// SearchConfig holds live-search pipeline settings.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
	// MaxPerSource is how many candidates each provider is asked for.
	MaxPerSource int `yaml:"max_per_source"`
	// BatchSize is how many papers are embedded and scored per ranking batch.
	BatchSize int `yaml:"batch_size"`
	// AbstractPrefix caps the abstract length fed to the embedder.
	AbstractPrefix int `yaml:"abstract_prefix"`
	// SummaryPreview caps the abstract preview returned to the client.
	SummaryPreview int `yaml:"summary_preview"`
}

// IndexConfig holds the persistent paper index settings.
type IndexConfig struct {
	Name string `yaml:"name"`
	// IngestRetries bounds upsert attempts during batch ingestion.
	IngestRetries int `yaml:"ingest_retries"`
}

// RateLimitConfig holds inbound per-client rate limiting settings.
type RateLimitConfig struct {
	RequestsPerHour int `yaml:"requests_per_hour"`
}

// KnownSources lists provider ids that receive defaults and pass validation.
var KnownSources = []string{"arxiv", "open_alex", "pubmed", "crossref", "semantic_scholar"}

// sourceDefaults holds per-provider pacing and endpoint defaults. Pacing
// follows each provider's published politeness rules.
var sourceDefaults = map[string]SourceConfig{
	"arxiv":            {BaseURL: "https://export.arxiv.org/api/query", PaceMS: 3000},
	"open_alex":        {BaseURL: "https://api.openalex.org/works", PaceMS: 100},
	"pubmed":           {BaseURL: "https://eutils.ncbi.nlm.nih.gov/entrez/eutils", PaceMS: 350},
	"crossref":         {BaseURL: "https://api.crossref.org/works", PaceMS: 1000},
	"semantic_scholar": {BaseURL: "https://api.semanticscholar.org/graph/v1/paper/search", PaceMS: 3000},
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

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
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// The live pipeline waits on the slowest connector, so responses can
		// take tens of seconds.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.CacheTTLHours < 0 {
		c.Embedding.CacheTTLHours = 0
	}
	if c.LLM.ValidatorModel == "" {
		c.LLM.ValidatorModel = "gpt-4o-mini"
	}
	if c.LLM.SummaryModel == "" {
		c.LLM.SummaryModel = "gpt-4o-mini"
	}
	if c.WebSearch.BaseURL == "" {
		c.WebSearch.BaseURL = "https://serpapi.com/search.json"
	}
	if c.WebSearch.NumResults <= 0 {
		c.WebSearch.NumResults = 8
	}
	if c.WebSearch.TimeoutSec <= 0 {
		c.WebSearch.TimeoutSec = 30
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 3
	}
	if c.Search.MaxPerSource <= 0 {
		c.Search.MaxPerSource = 5
	}
	if c.Search.BatchSize <= 0 {
		c.Search.BatchSize = 50
	}
	if c.Search.AbstractPrefix <= 0 {
		c.Search.AbstractPrefix = 1000
	}
	if c.Search.SummaryPreview <= 0 {
		c.Search.SummaryPreview = 500
	}
	if c.Index.Name == "" {
		c.Index.Name = "querie-papers"
	}
	if c.Index.IngestRetries <= 0 {
		c.Index.IngestRetries = 3
	}
	if c.RateLimit.RequestsPerHour <= 0 {
		c.RateLimit.RequestsPerHour = 20
	}

	if c.Sources == nil {
		c.Sources = SourcesConfig{}
	}
	for _, name := range KnownSources {
		sc, ok := c.Sources[name]
		if !ok {
			sc = SourceConfig{Enabled: true}
		}
		def := sourceDefaults[name]
		if sc.BaseURL == "" {
			sc.BaseURL = def.BaseURL
		}
		if sc.PaceMS <= 0 {
			sc.PaceMS = def.PaceMS
		}
		if sc.TimeoutSec <= 0 {
			sc.TimeoutSec = 5
		}
		if sc.MaxResults <= 0 {
			sc.MaxResults = 100
		}
		if sc.MinAbstractLen <= 0 {
			sc.MinAbstractLen = 50
		}
		c.Sources[name] = sc
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	for name := range c.Sources {
		if !isKnownSource(name) {
			return fmt.Errorf("sources.%s is not a recognized provider", name)
		}
	}
	if c.Search.BatchSize > 0 && c.Search.TopK > 10000 {
		return fmt.Errorf("search.top_k is unreasonably large: %d", c.Search.TopK)
	}
	return nil
}

func isKnownSource(name string) bool {
	for _, k := range KnownSources {
		if k == name {
			return true
		}
	}
	return false
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
