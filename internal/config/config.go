// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (SALESAGENT_* prefix, plus DATABASE_URL)
//  2. Config file (~/.salesagent/config.yaml)
//  3. Default values (usable against a local llama.cpp server out of the box)
//
// A local .env file is loaded first so development setups can keep
// credentials out of the shell profile.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sentinel errors for configuration problems. Checked with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidBaseURL indicates the chat backend base URL is empty.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxRounds indicates the orchestrator round limit is out of range.
	ErrInvalidMaxRounds = errors.New("invalid max rounds")

	// ErrInvalidTopK indicates the retrieval top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid top k")

	// ErrInvalidChunking indicates the chunk size/overlap combination is unusable.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

// Defaults mirroring the local single-user setup this tool targets.
const (
	// DefaultBaseURL is the OpenAI-compatible endpoint of a local llama.cpp server.
	DefaultBaseURL = "http://localhost:8080/v1"

	// DefaultModelName is the chat model identifier sent to the backend.
	DefaultModelName = "gpt-oss-20b"

	// DefaultEmbeddingModel is the embedding model identifier.
	// The same model must be used at ingest and query time; the identifier
	// is recorded in document metadata so a mismatch can be detected.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultTemperature keeps answers mostly deterministic.
	DefaultTemperature = 0.1

	// DefaultMaxTokens bounds a single completion.
	DefaultMaxTokens = 5000

	// DefaultMaxRounds bounds the agent loop per user turn.
	DefaultMaxRounds = 8

	// DefaultTopK is the number of chunks retrieved per knowledge search.
	DefaultTopK = 6

	// DefaultMaxScore drops chunks whose cosine distance exceeds this value.
	// Lower score means more relevant.
	DefaultMaxScore = 0.4

	// DefaultChunkSize is the document chunk size in characters.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the overlap between adjacent chunks.
	DefaultChunkOverlap = 100

	// DefaultRequestTimeout bounds one chat backend call.
	DefaultRequestTimeout = 2 * time.Minute

	// DefaultHTTPAddr is the default listen address for the HTTP API.
	DefaultHTTPAddr = "127.0.0.1:8090"
)

// Config stores application configuration.
type Config struct {
	// Chat backend (OpenAI-compatible endpoint)
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	ModelName      string        `mapstructure:"model_name"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Agent behavior
	MaxRounds int     `mapstructure:"max_rounds"`
	TopK      int     `mapstructure:"top_k"`
	MaxScore  float64 `mapstructure:"max_score"`
	ChartsDir string  `mapstructure:"charts_dir"`

	// Document ingestion
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// PostgreSQL (sales schema + pgvector documents table)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// HTTP API
	HTTPAddr string `mapstructure:"http_addr"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load reads configuration from all sources and validates the result.
func Load() (*Config, error) {
	// Best-effort: a missing .env file is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SALESAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir, err := configDir(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("api_key", "not-a-real-key") // some OpenAI-compatible servers require a non-empty key
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedding_model", DefaultEmbeddingModel)
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("max_tokens", DefaultMaxTokens)
	v.SetDefault("request_timeout", DefaultRequestTimeout)

	v.SetDefault("max_rounds", DefaultMaxRounds)
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("max_score", DefaultMaxScore)
	v.SetDefault("charts_dir", "charts")

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "salesagent")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_dbname", "salesagent")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("http_addr", DefaultHTTPAddr)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// configDir returns the configuration directory (~/.salesagent),
// creating it if necessary.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".salesagent")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Validate checks configuration values and returns the first problem found.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrInvalidBaseURL
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return ErrInvalidModelName
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxRounds < 1 || c.MaxRounds > 100 {
		return fmt.Errorf("%w: %d (must be 1-100)", ErrInvalidMaxRounds, c.MaxRounds)
	}
	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: %d (must be 1-50)", ErrInvalidTopK, c.TopK)
	}
	if c.ChunkSize < 1 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunking, c.ChunkSize, c.ChunkOverlap)
	}
	if strings.TrimSpace(c.PostgresHost) == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return ErrInvalidPostgresDBName
	}
	return nil
}
