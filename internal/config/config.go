package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr                string   `yaml:"addr"`
	ReadTimeoutSecs     int      `yaml:"read_timeout_secs"`
	WriteTimeoutSecs    int      `yaml:"write_timeout_secs"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs"`
	MaxUploadMB         int      `yaml:"max_upload_mb"`
	AllowOrigins        []string `yaml:"allow_origins"`
}

// LogConfig selects log level and output format (json or console).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects and configures the template store implementation.
type StoreConfig struct {
	Type     string          `yaml:"type"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
}

// PostgresConfig contains connection details for the PostgreSQL template store.
type PostgresConfig struct {
	DSNEnv      string `yaml:"dsn_env"`
	MaxConns    int32  `yaml:"max_conns"`
	MinConns    int32  `yaml:"min_conns"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// DSN resolves the connection string from the configured environment variable.
func (c PostgresConfig) DSN() string {
	return os.Getenv(c.DSNEnv)
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiConfig configures the Gemini structured extraction client.
type GeminiConfig struct {
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// ExtractorConfig selects the document-to-template extractor.
type ExtractorConfig struct {
	Type             string        `yaml:"type"`
	Gemini           *GeminiConfig `yaml:"gemini,omitempty"`
	SummarySentences int           `yaml:"summary_sentences"`
}

// RedisConfig contains connection details for the Redis session store.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	KeyPrefix   string `yaml:"key_prefix"`
}

// SessionConfig selects the draft session store and its expiry.
type SessionConfig struct {
	Type    string       `yaml:"type"`
	TTLMins int          `yaml:"ttl_mins"`
	Redis   *RedisConfig `yaml:"redis,omitempty"`
}

// TTL returns the session expiry as a duration.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMins) * time.Minute
}

// WorkerConfig sizes the background pool and index retry policy.
type WorkerConfig struct {
	PoolSize          int    `yaml:"pool_size"`
	ReindexMaxRetries int    `yaml:"reindex_max_retries"`
	Reindexer         string `yaml:"reindexer"`
}

// DraftingConfig tunes the drafting state machine.
type DraftingConfig struct {
	RequiredOnly bool `yaml:"required_only"`
}

// IngestConfig tunes document ingestion.
type IngestConfig struct {
	StrictPlaceholders bool `yaml:"strict_placeholders"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Store       StoreConfig       `yaml:"store"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Session     SessionConfig     `yaml:"session"`
	Worker      WorkerConfig      `yaml:"worker"`
	Drafting    DraftingConfig    `yaml:"drafting"`
	Ingest      IngestConfig      `yaml:"ingest"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/legaldraft/config.yaml.
// If neither exists, it writes defaults to ~/.config/legaldraft/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations that select a backend without its settings.
func (c *AppConfig) Validate() error {
	if c.Store.Type == "postgres" && c.Store.Postgres == nil {
		return errors.New("store.postgres config missing")
	}
	if c.VectorStore.Type == "qdrant" && (c.VectorStore.Qdrant == nil || c.VectorStore.Qdrant.URL == "") {
		return errors.New("vector_store.qdrant.url missing")
	}
	if c.Embedder.Type == "openai" && c.Embedder.OpenAI == nil {
		return errors.New("embedder.openai config missing")
	}
	if c.Session.Type == "redis" && (c.Session.Redis == nil || c.Session.Redis.Addr == "") {
		return errors.New("session.redis.addr missing")
	}
	if c.Worker.Reindexer == "river" && c.Store.Type != "postgres" {
		return errors.New("worker.reindexer river requires store.type postgres")
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "legaldraft", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:                ":8000",
			ReadTimeoutSecs:     30,
			WriteTimeoutSecs:    120,
			ShutdownTimeoutSecs: 15,
			MaxUploadMB:         20,
			AllowOrigins:        []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Log:         LogConfig{Level: "info", Format: "json"},
		Store:       StoreConfig{Type: "memory"},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Extractor:   ExtractorConfig{Type: "heuristic", SummarySentences: 2},
		Session:     SessionConfig{Type: "memory", TTLMins: 60},
		Worker:      WorkerConfig{PoolSize: 8, ReindexMaxRetries: 5, Reindexer: "pool"},
		RateLimit:   RateLimitConfig{RPS: 10, Burst: 20},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 20
	}
	if cfg.Session.TTLMins == 0 {
		cfg.Session.TTLMins = 60
	}
	if cfg.Worker.PoolSize == 0 {
		cfg.Worker.PoolSize = 8
	}
	if cfg.Worker.Reindexer == "" {
		cfg.Worker.Reindexer = "pool"
	}
	if p := cfg.Store.Postgres; p != nil {
		if p.DSNEnv == "" {
			p.DSNEnv = "DATABASE_URL"
		}
		if p.MaxConns == 0 {
			p.MaxConns = 10
		}
	}
	if o := cfg.Embedder.OpenAI; cfg.Embedder.Type == "openai" && o != nil {
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}
	if q := cfg.VectorStore.Qdrant; q != nil && q.Collection == "" {
		q.Collection = "templates"
	}
	if cfg.Extractor.Type == "gemini" {
		if cfg.Extractor.Gemini == nil {
			cfg.Extractor.Gemini = &GeminiConfig{}
		}
		if cfg.Extractor.Gemini.APIKeyEnv == "" {
			cfg.Extractor.Gemini.APIKeyEnv = "GOOGLE_API_KEY"
		}
		if cfg.Extractor.Gemini.Model == "" {
			cfg.Extractor.Gemini.Model = "gemini-2.5-flash"
		}
	}
	if r := cfg.Session.Redis; r != nil && r.KeyPrefix == "" {
		r.KeyPrefix = "legaldraft:session:"
	}
}
