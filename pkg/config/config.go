// Package config loads tabular-engine configuration from YAML plus
// environment overrides. Secrets only ever come from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tabular-engine.
// Environment variables always override YAML values for fields that support
// both. Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	// Database is the engine's own store (connection catalog, query history).
	Database DatabaseConfig `yaml:"database"`

	// Datasource governs pooling for registered external databases.
	Datasource DatasourceConfig `yaml:"datasource"`

	// LLM configures the language-generation collaborator.
	LLM LLMConfig `yaml:"llm"`

	// Pipeline holds execution bounds and synthesis thresholds.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// CredentialsKey encrypts connection credentials at rest.
	// Must be a 32-byte key, base64 encoded. Generate with: openssl rand -base64 32
	// The engine fails to start if this is not set.
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds the engine store's PostgreSQL configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"tabular"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"tabular_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
}

// ConnectionString returns a PostgreSQL connection string for the engine store.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DatasourceConfig holds external-connection pooling settings.
type DatasourceConfig struct {
	// ConnectionTTLMinutes is how long idle datasource pools are kept alive.
	ConnectionTTLMinutes int `yaml:"connection_ttl_minutes" env:"DATASOURCE_CONNECTION_TTL_MINUTES" env-default:"5"`
	// PoolMaxConns is the maximum number of connections per datasource pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"10"`
	// PoolMinConns is the minimum number of connections per datasource pool.
	PoolMinConns int32 `yaml:"pool_min_conns" env:"DATASOURCE_POOL_MIN_CONNS" env-default:"1"`
}

// ConnectionTTL returns the pool TTL as a duration.
func (c *DatasourceConfig) ConnectionTTL() time.Duration {
	return time.Duration(c.ConnectionTTLMinutes) * time.Minute
}

// LLMConfig holds language model provider settings.
type LLMConfig struct {
	// Provider selects the client implementation: "openai" (any
	// OpenAI-compatible endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL  string `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	// MaxTokens bounds completion length for synthesis responses.
	MaxTokens int `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2048"`
}

// PipelineConfig holds execution bounds and synthesis thresholds.
type PipelineConfig struct {
	// StatementTimeoutSeconds bounds each sandboxed execution.
	StatementTimeoutSeconds int `yaml:"statement_timeout_seconds" env:"PIPELINE_STATEMENT_TIMEOUT_SECONDS" env-default:"30"`
	// MaxRows caps rows returned by one execution.
	MaxRows int `yaml:"max_rows" env:"PIPELINE_MAX_ROWS" env-default:"1000"`
	// ConfidenceThreshold is the 0-100 score below which synthesis asks for
	// clarification instead of executing.
	ConfidenceThreshold int `yaml:"confidence_threshold" env:"PIPELINE_CONFIDENCE_THRESHOLD" env-default:"60"`
	// HistoryWindow is the number of prior exchanges embedded in the prompt.
	HistoryWindow int `yaml:"history_window" env:"PIPELINE_HISTORY_WINDOW" env-default:"5"`
	// RenderMaxRows caps rows in the rendered table view.
	RenderMaxRows int `yaml:"render_max_rows" env:"PIPELINE_RENDER_MAX_ROWS" env-default:"100"`
	// RenderCellWidth caps the width of one rendered table cell.
	RenderCellWidth int `yaml:"render_cell_width" env:"PIPELINE_RENDER_CELL_WIDTH" env-default:"40"`
}

// StatementTimeout returns the per-execution timeout as a duration.
func (c *PipelineConfig) StatementTimeout() time.Duration {
	return time.Duration(c.StatementTimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml (when present) with environment
// variable overrides, then validates required secrets.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.CredentialsKey == "" {
		return nil, fmt.Errorf("CREDENTIALS_KEY is required")
	}

	return cfg, nil
}
