package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// validConfig returns a configuration that passes Validate.
func validConfig() *Config {
	return &Config{
		LLMAPIBase:       DefaultLLMAPIBase,
		LLMModelName:     DefaultLLMModel,
		KnowledgeStorage: StorageLocal,
		OllamaHost:       "http://localhost:11434",
		EmbeddingModel:   DefaultEmbeddingModel,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "prompts",
		PostgresPassword: "secret-password-123",
		PostgresDBName:   "prompts",
		PostgresSSLMode:  "disable",
		DifyBaseURL:      DefaultDifyBaseURL,
		TopK:             DefaultTopK,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:   "valid local config",
			modify: func(*Config) {},
		},
		{
			name:   "valid cloud config",
			modify: func(c *Config) { c.KnowledgeStorage = StorageCloud },
		},
		{
			name:   "storage is case-insensitive",
			modify: func(c *Config) { c.KnowledgeStorage = "Cloud" },
		},
		{
			name:    "unknown storage backend",
			modify:  func(c *Config) { c.KnowledgeStorage = "s3" },
			wantErr: ErrInvalidStorage,
		},
		{
			name:    "postgres port zero",
			modify:  func(c *Config) { c.PostgresPort = 0 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "postgres port too large",
			modify:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "ollama host without scheme",
			modify:  func(c *Config) { c.OllamaHost = "localhost:11434" },
			wantErr: ErrInvalidOllamaHost,
		},
		{
			name:    "top_k zero",
			modify:  func(c *Config) { c.TopK = 0 },
			wantErr: ErrInvalidTopK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestValidateNormalizesStorage(t *testing.T) {
	cfg := validConfig()
	cfg.KnowledgeStorage = "LOCAL"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.KnowledgeStorage != StorageLocal {
		t.Errorf("KnowledgeStorage = %q, want %q", cfg.KnowledgeStorage, StorageLocal)
	}
}

func TestMarshalJSONMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.LLMAPIKey = "sk-super-secret-key-value"
	cfg.DifyAPIKey = "dataset-abcdef123456"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() = %v", err)
	}

	out := string(data)
	for _, secret := range []string{"sk-super-secret-key-value", "secret-password-123", "dataset-abcdef123456"} {
		if strings.Contains(out, secret) {
			t.Errorf("marshaled config leaks secret %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, maskedValue) {
		t.Errorf("marshaled config missing mask: %s", out)
	}
}

func TestPostgresConnString(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "has space='quote'"

	dsn := cfg.PostgresConnString()
	if !strings.Contains(dsn, "host=localhost") || !strings.Contains(dsn, "port=5432") {
		t.Errorf("DSN missing host/port: %q", dsn)
	}
	if !strings.Contains(dsn, `password='has space=\'quote\''`) {
		t.Errorf("DSN password not quoted: %q", dsn)
	}
}

func TestPostgresMigrateURL(t *testing.T) {
	cfg := validConfig()
	u := cfg.PostgresMigrateURL()
	if !strings.HasPrefix(u, "pgx5://") {
		t.Errorf("migrate URL scheme = %q, want pgx5://", u)
	}
	if !strings.Contains(u, "sslmode=disable") {
		t.Errorf("migrate URL missing sslmode: %q", u)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", maskedValue},
		{"12345678", maskedValue},
		{"my_long_secret_key_123", "my<" + maskedValue + ">23"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvBindings(t *testing.T) {
	t.Setenv("TOP_K", "5")
	t.Setenv("KNOWLEDGE_STORAGE", "cloud")
	t.Setenv("LLM_MODEL_NAME", "gpt-4o-mini")

	v := viper.New()
	setDefaults(v)
	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5 from TOP_K", cfg.TopK)
	}
	if cfg.KnowledgeStorage != "cloud" {
		t.Errorf("KnowledgeStorage = %q, want %q", cfg.KnowledgeStorage, "cloud")
	}
	if cfg.LLMModelName != "gpt-4o-mini" {
		t.Errorf("LLMModelName = %q, want %q", cfg.LLMModelName, "gpt-4o-mini")
	}
}
