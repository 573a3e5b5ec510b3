package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	Model           string `yaml:"model"`
	MaxPromptTokens int    `yaml:"max_prompt_tokens"` // long descriptions are truncated to fit
	ConcurrentLimit int    `yaml:"concurrent_limit"`  // max concurrent classifier calls
}

type PipelineConfig struct {
	BatchLimit          int           `yaml:"batch_limit"`
	CallDelay           time.Duration `yaml:"call_delay"`    // fixed pause after each classifier call
	AutoInterval        time.Duration `yaml:"auto_interval"` // 0 disables the scheduled trigger
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
}

type QueueConfig struct {
	PollInterval       time.Duration `yaml:"poll_interval"`
	Workers            int           `yaml:"workers"`
	DefaultMaxAttempts int           `yaml:"default_max_attempts"`
}

type APIConfig struct {
	Port int    `yaml:"port"`
	Key  string `yaml:"key"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Queue    QueueConfig    `yaml:"queue"`
	API      APIConfig      `yaml:"api"`

	Runtime RuntimeConfig `yaml:"-"`
}

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
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 6000
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 4
	}
	if cfg.Pipeline.BatchLimit <= 0 {
		cfg.Pipeline.BatchLimit = 25
	}
	if cfg.Pipeline.CallDelay <= 0 {
		cfg.Pipeline.CallDelay = time.Second
	}
	if cfg.Pipeline.SimilarityThreshold <= 0 || cfg.Pipeline.SimilarityThreshold > 1 {
		cfg.Pipeline.SimilarityThreshold = 0.7
	}
	if cfg.Queue.PollInterval <= 0 {
		cfg.Queue.PollInterval = 500 * time.Millisecond
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 2
	}
	if cfg.Queue.DefaultMaxAttempts <= 0 {
		cfg.Queue.DefaultMaxAttempts = 3
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
