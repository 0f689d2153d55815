package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (ANALYST_SERVER_PORT).
const EnvPrefix = "ANALYST"

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Graph store configuration
	Graph GraphConfig `mapstructure:"graph"`

	// Reasoning configuration
	Reasoning ReasoningConfig `mapstructure:"reasoning"`

	// Extractor configuration
	Extractor ExtractorConfig `mapstructure:"extractor"`

	// NLU collaborator configuration
	NLU NLUConfig `mapstructure:"nlu"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Semantic search collaborator configuration
	Semantic SemanticConfig `mapstructure:"semantic"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// Neo4j export configuration
	Neo4j Neo4jConfig `mapstructure:"neo4j"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	// ParquetPath is the directory query audit files are written to. Empty disables the audit.
	ParquetPath string `mapstructure:"parquet_path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json, color
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"` // gin mode: debug, release, test
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GraphConfig holds graph store configuration
type GraphConfig struct {
	DataPath    string   `mapstructure:"data_path"`    // exchange batch (json/yaml) loaded at startup
	SchemaPath  string   `mapstructure:"schema_path"`  // validity table, empty uses the bundled one
	LexiconPath string   `mapstructure:"lexicon_path"` // lexicon, empty uses the bundled one
	SnapshotDir string   `mapstructure:"snapshot_dir"` // badger directory for persisted snapshots
	Watch       bool     `mapstructure:"watch"`
	IDPrefixes  []string `mapstructure:"id_prefixes"`
}

// ReasoningConfig holds dispatcher, strategy and synthesizer settings
type ReasoningConfig struct {
	DefaultHops      int     `mapstructure:"default_hops"`
	MaxHops          int     `mapstructure:"max_hops"`
	DisplayCap       int     `mapstructure:"display_cap"`
	SecondHopDecay   float64 `mapstructure:"second_hop_decay"`
	DeepHopDecay     float64 `mapstructure:"deep_hop_decay"`
	PathLimit        int     `mapstructure:"path_limit"`
	FrontierCap      int     `mapstructure:"frontier_cap"`
	ChainAnswerCap   int     `mapstructure:"chain_answer_cap"`
	AggregationCap   int     `mapstructure:"aggregation_cap"`
	BatchConcurrency int     `mapstructure:"batch_concurrency"`
}

// ExtractorConfig holds entity extraction thresholds
type ExtractorConfig struct {
	MinCandidates      int     `mapstructure:"min_candidates"`
	MinSubstringLength int     `mapstructure:"min_substring_length"`
	MinConfidence      float64 `mapstructure:"min_confidence"`
	NLUConfidence      float64 `mapstructure:"nlu_confidence"`
}

// NLUConfig holds configuration for the language understanding collaborator
type NLUConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Provider    string        `mapstructure:"provider"` // openai
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// SemanticConfig holds configuration for the semantic search collaborator
type SemanticConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	TopK     int           `mapstructure:"top_k"`
	MinScore float64       `mapstructure:"min_score"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds the bounded context cache configuration
type CacheConfig struct {
	Enabled    bool  `mapstructure:"enabled"`
	MaxEntries int64 `mapstructure:"max_entries"`
}

// Neo4jConfig holds configuration for exporting into a Neo4j database
type Neo4jConfig struct {
	URI       string `mapstructure:"uri"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	BatchSize int    `mapstructure:"batch_size"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Reasoning.DefaultHops < 1 {
		return fmt.Errorf("reasoning.default_hops must be at least 1, got %d", c.Reasoning.DefaultHops)
	}
	if c.Reasoning.MaxHops < c.Reasoning.DefaultHops {
		return fmt.Errorf("reasoning.max_hops (%d) must not be below default_hops (%d)", c.Reasoning.MaxHops, c.Reasoning.DefaultHops)
	}
	for name, f := range map[string]float64{
		"reasoning.second_hop_decay": c.Reasoning.SecondHopDecay,
		"reasoning.deep_hop_decay":   c.Reasoning.DeepHopDecay,
		"extractor.min_confidence":   c.Extractor.MinConfidence,
		"extractor.nlu_confidence":   c.Extractor.NLUConfidence,
		"semantic.min_score":         c.Semantic.MinScore,
	} {
		if f < 0 || f > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, f)
		}
	}
	switch c.Log.Format {
	case "", "text", "json", "color":
	default:
		return fmt.Errorf("log.format must be text, json or color, got %q", c.Log.Format)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.request_timeout", "30s")

	// Graph defaults
	viper.SetDefault("graph.data_path", "")
	viper.SetDefault("graph.schema_path", "")
	viper.SetDefault("graph.lexicon_path", "")
	viper.SetDefault("graph.snapshot_dir", "")
	viper.SetDefault("graph.watch", false)

	// Reasoning defaults
	viper.SetDefault("reasoning.default_hops", 2)
	viper.SetDefault("reasoning.max_hops", 3)
	viper.SetDefault("reasoning.display_cap", 10)
	viper.SetDefault("reasoning.second_hop_decay", 0.9)
	viper.SetDefault("reasoning.deep_hop_decay", 0.8)
	viper.SetDefault("reasoning.path_limit", 5)
	viper.SetDefault("reasoning.frontier_cap", 10)
	viper.SetDefault("reasoning.chain_answer_cap", 20)
	viper.SetDefault("reasoning.aggregation_cap", 50)
	viper.SetDefault("reasoning.batch_concurrency", 8)

	// Extractor defaults
	viper.SetDefault("extractor.min_candidates", 1)
	viper.SetDefault("extractor.min_substring_length", 4)
	viper.SetDefault("extractor.min_confidence", 0.6)
	viper.SetDefault("extractor.nlu_confidence", 0.7)

	// NLU defaults
	viper.SetDefault("nlu.enabled", false)
	viper.SetDefault("nlu.provider", "openai")
	viper.SetDefault("nlu.model", "gpt-4o-mini")
	viper.SetDefault("nlu.temperature", 0.0)
	viper.SetDefault("nlu.max_tokens", 256)
	viper.SetDefault("nlu.timeout", "3s")
	viper.SetDefault("nlu.max_retries", 1)

	// Embedding defaults
	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")

	// Semantic defaults
	viper.SetDefault("semantic.enabled", false)
	viper.SetDefault("semantic.top_k", 5)
	viper.SetDefault("semantic.min_score", 0.5)
	viper.SetDefault("semantic.timeout", "3s")

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_entries", 10000)

	// Neo4j defaults
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.batch_size", 500)

	// Telemetry defaults
	viper.SetDefault("telemetry.parquet_path", "")
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Collaborator credentials
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.NLU.APIKey == "" {
			config.NLU.APIKey = apiKey
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
	}

	// Database credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Neo4j.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Neo4j.Password = pass
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
