// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.better-prompts/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - LLM: OpenAI-compatible chat completion endpoint (base URL, key, model)
//   - Knowledge: store backend selection ("local" or "cloud")
//   - Embedding: Ollama host and embedding model for the local backend
//   - Postgres: connection settings for the local vector store
//   - Dify: credentials for the cloud backend
//
// Sensitive values (API keys, passwords) are masked in MarshalJSON so a
// config dump never leaks secrets into logs.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidStorage indicates an unknown knowledge storage backend.
	ErrInvalidStorage = errors.New("invalid knowledge storage")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidOllamaHost indicates the Ollama host is not a valid URL.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidTopK indicates the default top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")
)

// Knowledge storage backend identifiers used in Config.KnowledgeStorage.
const (
	StorageLocal = "local"
	StorageCloud = "cloud"
)

const (
	// DefaultLLMAPIBase is the default OpenAI-compatible endpoint.
	DefaultLLMAPIBase = "https://api.openai.com/v1"

	// DefaultLLMModel is the default chat completion model.
	DefaultLLMModel = "gpt-3.5-turbo"

	// DefaultEmbeddingModel is the Ollama embedding model for the local
	// backend. nomic-embed-text outputs 768-dimension vectors; the
	// methodologies table schema depends on that dimension.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultDifyBaseURL is the default Dify API endpoint.
	DefaultDifyBaseURL = "http://dify.dulicode.com/v1"

	// DefaultTopK is the number of methodologies retrieved when the caller
	// does not specify one.
	DefaultTopK = 3
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON. When
// adding new secret fields, update MarshalJSON as well.
type Config struct {
	// LLM transport configuration (OpenAI-compatible chat completions)
	LLMAPIBase   string `mapstructure:"llm_api_base" json:"llm_api_base"`
	LLMAPIKey    string `mapstructure:"llm_api_key" json:"llm_api_key"` // SENSITIVE
	LLMModelName string `mapstructure:"llm_model_name" json:"llm_model_name"`

	// Knowledge store backend: "local" (pgvector) or "cloud" (Dify)
	KnowledgeStorage string `mapstructure:"knowledge_storage" json:"knowledge_storage"`

	// Embedding configuration (local backend only)
	OllamaHost     string `mapstructure:"ollama_host" json:"ollama_host"`
	EmbeddingModel string `mapstructure:"embedding_model" json:"embedding_model"`

	// PostgreSQL configuration (local backend only)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Dify configuration (cloud backend only)
	DifyBaseURL    string `mapstructure:"dify_base_url" json:"dify_base_url"`
	DifyAPIKey     string `mapstructure:"dify_api_key" json:"dify_api_key"` // SENSITIVE
	DifyDatasetID  string `mapstructure:"dify_dataset_id" json:"dify_dataset_id"`
	DifyDocumentID string `mapstructure:"dify_document_id" json:"dify_document_id"`

	// Retrieval defaults
	TopK int `mapstructure:"top_k" json:"top_k"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".better-prompts")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults and env apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llm_api_base", DefaultLLMAPIBase)
	v.SetDefault("llm_model_name", DefaultLLMModel)

	v.SetDefault("knowledge_storage", StorageLocal)

	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("embedding_model", DefaultEmbeddingModel)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "prompts")
	v.SetDefault("postgres_password", "prompts_dev_password")
	v.SetDefault("postgres_db_name", "prompts")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("dify_base_url", DefaultDifyBaseURL)

	v.SetDefault("top_k", DefaultTopK)
}

// bindEnvVariables binds recognized environment variables explicitly.
// The env names are part of the public configuration surface and must not
// drift, so each is bound by hand rather than via AutomaticEnv.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("llm_api_base", "LLM_API_BASE")
	mustBind("llm_api_key", "LLM_API_KEY")
	mustBind("llm_model_name", "LLM_MODEL_NAME")

	mustBind("knowledge_storage", "KNOWLEDGE_STORAGE")

	mustBind("ollama_host", "OLLAMA_HOST")
	mustBind("embedding_model", "EMBEDDING_MODEL")

	mustBind("postgres_host", "POSTGRES_HOST")
	mustBind("postgres_port", "POSTGRES_PORT")
	mustBind("postgres_user", "POSTGRES_USER")
	mustBind("postgres_password", "POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "POSTGRES_SSL_MODE")

	mustBind("dify_base_url", "DIFY_BASE_URL")
	mustBind("dify_api_key", "DIFY_API_KEY")
	mustBind("dify_dataset_id", "DIFY_DATASET_ID")
	mustBind("dify_document_id", "DIFY_DOCUMENT_ID")

	mustBind("top_k", "TOP_K")
}

// Validate performs fail-fast validation of the loaded configuration.
// Backend-specific credentials (LLM API key, Dify settings) are checked at
// client construction, not here, so that the unused backend's settings may
// stay empty.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	storage := strings.ToLower(c.KnowledgeStorage)
	if storage != StorageLocal && storage != StorageCloud {
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidStorage, c.KnowledgeStorage, StorageLocal, StorageCloud)
	}
	c.KnowledgeStorage = storage

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if u, err := url.Parse(c.OllamaHost); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidOllamaHost, c.OllamaHost)
	}

	if c.TopK < 1 || c.TopK > 20 {
		return fmt.Errorf("%w: %d (must be 1-20)", ErrInvalidTopK, c.TopK)
	}

	return nil
}

// PostgresConnString returns the PostgreSQL DSN for the pgx driver.
// The password is single-quoted to survive spaces and '=' characters.
func (c *Config) PostgresConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresUser,
		quoteDSNValue(c.PostgresPassword),
		c.PostgresDBName,
		c.PostgresSSLMode,
	)
}

// PostgresMigrateURL returns the database URL for golang-migrate, using the
// pgx/v5 driver scheme. url.URL handles credential escaping.
func (c *Config) PostgresMigrateURL() string {
	u := &url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     c.PostgresDBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.PostgresSSLMode),
	}
	return u.String()
}

// quoteDSNValue quotes a value for PostgreSQL key=value DSN format.
func quoteDSNValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are
// fully masked; longer ones keep the first and last two characters for
// debugging utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	masked.LLMAPIKey = maskSecret(c.LLMAPIKey)
	masked.PostgresPassword = maskSecret(c.PostgresPassword)
	masked.DifyAPIKey = maskSecret(c.DifyAPIKey)
	return json.Marshal(masked)
}
