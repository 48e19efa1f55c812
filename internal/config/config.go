package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// ValkeyConfig holds the broker connection settings. Valkey speaks the Redis
// protocol, so the go-redis client is used as-is.
type ValkeyConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	DB          int           `yaml:"db"`
	Password    string        `yaml:"password"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

func (v ValkeyConfig) Addr() string {
	return fmt.Sprintf("%s:%d", v.Host, v.Port)
}

type AIConfig struct {
	GeminiKey    string `yaml:"gemini_key"`
	GeminiURL    string `yaml:"gemini_url"`
	OpenAIKey    string `yaml:"openai_key"`
	OpenAIBase   string `yaml:"openai_base"`
	DefaultModel string `yaml:"default_model"`
	MaxTokens    int    `yaml:"max_tokens"`
}

type VectorConfig struct {
	QdrantURL         string `yaml:"qdrant_url"`
	DefaultCollection string `yaml:"default_collection"`
	TopK              int    `yaml:"top_k"`
}

type WorkerConfig struct {
	PollTimeout     time.Duration `yaml:"poll_timeout"`     // blocking-pull window per iteration
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // scheduled retention sweep period
	RetentionDays   int           `yaml:"retention_days"`   // terminal records older than this get swept
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
	AI       AIConfig       `yaml:"ai"`
	Vector   VectorConfig   `yaml:"vector"`
	Worker   WorkerConfig   `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file, applies defaults, then lets deployment
// environment variables override connection endpoints.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Valkey.Host == "" {
		cfg.Valkey.Host = "localhost"
	}
	if cfg.Valkey.Port == 0 {
		cfg.Valkey.Port = 6379
	}
	if cfg.Valkey.DialTimeout <= 0 {
		cfg.Valkey.DialTimeout = 5 * time.Second
	}
	if cfg.Valkey.ReadTimeout <= 0 {
		cfg.Valkey.ReadTimeout = 5 * time.Second
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gemini-1.5-flash"
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 2048
	}
	if cfg.Vector.QdrantURL == "" {
		cfg.Vector.QdrantURL = "http://localhost:6333"
	}
	if cfg.Vector.DefaultCollection == "" {
		cfg.Vector.DefaultCollection = "category"
	}
	if cfg.Vector.TopK <= 0 {
		cfg.Vector.TopK = 5
	}
	if cfg.Worker.PollTimeout <= 0 {
		cfg.Worker.PollTimeout = time.Second
	}
	if cfg.Worker.CleanupInterval <= 0 {
		cfg.Worker.CleanupInterval = 24 * time.Hour
	}
	if cfg.Worker.RetentionDays <= 0 {
		cfg.Worker.RetentionDays = 7
	}

	applyEnvOverrides(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnvOverrides maps deployment environment variables onto the config.
// Names match the original deployment (VALKEY_*, DATABASE_URL).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VALKEY_HOST"); v != "" {
		cfg.Valkey.Host = v
	}
	if v := os.Getenv("VALKEY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Valkey.Port = p
		}
	}
	if v := os.Getenv("VALKEY_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Valkey.DB = db
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiKey = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		cfg.Vector.QdrantURL = v
	}
}
