// Package config loads service settings from an optional YAML file, a .env
// file and environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zombar/viralrank/internal/models"
)

const configPathEnv = "VIRALRANK_CONFIG"

// Backend names for the scorer and embedder
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendNone   = "none"
)

// Sentiment model names
const (
	SentimentVader   = "vader"
	SentimentNeutral = "neutral"
)

// ErrInvalid is returned when a loaded setting is unusable
var ErrInvalid = errors.New("invalid configuration")

// Config holds all service settings
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Database  DatabaseConfig `yaml:"database"`
	Queue     QueueConfig    `yaml:"queue"`
	Ollama    OllamaConfig   `yaml:"ollama"`
	OpenAI    OpenAIConfig   `yaml:"openai"`
	Scorer    string         `yaml:"scorer"`
	Embedder  string         `yaml:"embedder"`
	Sentiment string         `yaml:"sentiment"`
	Pipeline  models.Config  `yaml:"pipeline"`
	TopN      int            `yaml:"topN"`
	LogLevel  string         `yaml:"logLevel"`
}

// ServerConfig describes the HTTP listener
type ServerConfig struct {
	Port         string        `yaml:"port"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// DatabaseConfig selects the run store
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// QueueConfig describes the asynq connection and worker
type QueueConfig struct {
	Enabled     bool   `yaml:"enabled"`
	RedisAddr   string `yaml:"redisAddr"`
	Concurrency int    `yaml:"concurrency"`
}

// OllamaConfig describes the local model server
type OllamaConfig struct {
	URL        string        `yaml:"url"`
	Model      string        `yaml:"model"`
	EmbedModel string        `yaml:"embedModel"`
	Timeout    time.Duration `yaml:"timeout"`
}

// OpenAIConfig describes an OpenAI-compatible API
type OpenAIConfig struct {
	APIKey     string        `yaml:"apiKey"`
	BaseURL    string        `yaml:"baseUrl"`
	Model      string        `yaml:"model"`
	EmbedModel string        `yaml:"embedModel"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"maxRetries"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         "8080",
			WriteTimeout: 7 * time.Minute, // synchronous LLM scoring
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "viralrank.db"},
		Queue:    QueueConfig{Enabled: true, RedisAddr: "localhost:6379", Concurrency: 2},
		Ollama: OllamaConfig{
			URL:        "http://localhost:11434",
			Model:      "gpt-oss:20b",
			EmbedModel: "nomic-embed-text",
			Timeout:    6 * time.Minute,
		},
		OpenAI: OpenAIConfig{
			Model:      "gpt-4o-mini",
			EmbedModel: "text-embedding-3-small",
			Timeout:    90 * time.Second,
			MaxRetries: 2,
		},
		Scorer:    BackendOllama,
		Embedder:  BackendOllama,
		Sentiment: SentimentVader,
		Pipeline:  models.DefaultConfig(),
		TopN:      5,
		LogLevel:  "info",
	}
}

// Load reads .env (if present), the YAML file named by VIRALRANK_CONFIG (if
// set) and environment overrides, then validates the result.
func Load() (Config, error) {
	_ = godotenv.Load() // best-effort: load .env if present

	cfg := Default()
	if path := os.Getenv(configPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// loadFile overlays the YAML file on cfg. Keys absent from the file keep
// their current values.
func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: cannot parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("PORT", &c.Server.Port)
	setString("DB_DRIVER", &c.Database.Driver)
	setString("DATABASE_DSN", &c.Database.DSN)
	setString("REDIS_ADDR", &c.Queue.RedisAddr)
	setString("OLLAMA_URL", &c.Ollama.URL)
	setString("OLLAMA_MODEL", &c.Ollama.Model)
	setString("OLLAMA_EMBED_MODEL", &c.Ollama.EmbedModel)
	setString("OPENAI_API_KEY", &c.OpenAI.APIKey)
	setString("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	setString("OPENAI_MODEL", &c.OpenAI.Model)
	setString("OPENAI_EMBED_MODEL", &c.OpenAI.EmbedModel)
	setString("VIRALRANK_SCORER", &c.Scorer)
	setString("VIRALRANK_EMBEDDER", &c.Embedder)
	setString("VIRALRANK_SENTIMENT", &c.Sentiment)
	setString("LOG_LEVEL", &c.LogLevel)

	var errs []error
	if err := envInt("WORKER_CONCURRENCY", &c.Queue.Concurrency); err != nil {
		errs = append(errs, err)
	}
	if err := envInt("TOP_N", &c.TopN); err != nil {
		errs = append(errs, err)
	}
	if err := envBool("QUEUE_ENABLED", &c.Queue.Enabled); err != nil {
		errs = append(errs, err)
	}
	if err := envBool("USE_LLM_SCORING", &c.Pipeline.UseLLMScoring); err != nil {
		errs = append(errs, err)
	}
	if err := envFloat("PSYCH_THRESHOLD", &c.Pipeline.PsychologicalThreshold); err != nil {
		errs = append(errs, err)
	}
	if err := envFloat("SIMILARITY_THRESHOLD", &c.Pipeline.SimilarityThreshold); err != nil {
		errs = append(errs, err)
	}
	if err := envFloat("MIN_HOOK_SCORE", &c.Pipeline.MinHookScore); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the settings that would otherwise fail at first use
func (c Config) Validate() error {
	var errs []error
	if err := c.Pipeline.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		errs = append(errs, fmt.Errorf("%w: database driver %q", ErrInvalid, c.Database.Driver))
	}
	for name, backend := range map[string]string{"scorer": c.Scorer, "embedder": c.Embedder} {
		switch backend {
		case BackendOllama, BackendOpenAI, BackendNone:
		default:
			errs = append(errs, fmt.Errorf("%w: %s backend %q", ErrInvalid, name, backend))
		}
	}
	if c.Sentiment != SentimentVader && c.Sentiment != SentimentNeutral {
		errs = append(errs, fmt.Errorf("%w: sentiment %q", ErrInvalid, c.Sentiment))
	}
	if c.TopN <= 0 {
		errs = append(errs, fmt.Errorf("%w: topN must be positive, got %d", ErrInvalid, c.TopN))
	}
	if c.Queue.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("%w: worker concurrency must be positive, got %d", ErrInvalid, c.Queue.Concurrency))
	}
	return errors.Join(errs...)
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, key, v)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, key, v)
	}
	return nil
}
