package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from defaults,
// then an optional YAML file named by CONFIG_FILE, then environment
// variables.
type Config struct {
	HTTPAddr            string        `yaml:"http_addr"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	Translator          string        `yaml:"translator"`
	TranslateTimeout    time.Duration `yaml:"translate_timeout"`
	TranslateRetries    int           `yaml:"translate_retries"`
	MyMemoryEmail       string        `yaml:"mymemory_email"`
	AnthropicAPIKey     string        `yaml:"anthropic_api_key"`
	AnthropicModel      string        `yaml:"anthropic_model"`
	MaxUploadBytes      int64         `yaml:"max_upload_bytes"`
	LogLevel            string        `yaml:"log_level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTPAddr:            ":8080",
		SimilarityThreshold: 0.5,
		Translator:          "mymemory",
		TranslateTimeout:    10 * time.Second,
		TranslateRetries:    2,
		MaxUploadBytes:      10 << 20,
		LogLevel:            "info",
	}
}

// Load reads the configuration file (if CONFIG_FILE is set) and environment
// variables over the defaults, then validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.Translator = getEnv("TRANSLATOR", cfg.Translator)
	cfg.TranslateTimeout = getEnvDuration("TRANSLATE_TIMEOUT", cfg.TranslateTimeout)
	cfg.TranslateRetries = getEnvInt("TRANSLATE_RETRIES", cfg.TranslateRetries)
	cfg.MyMemoryEmail = getEnv("MYMEMORY_EMAIL", cfg.MyMemoryEmail)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = getEnv("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("config: similarity threshold %v outside [0,1]", c.SimilarityThreshold)
	}
	if c.TranslateTimeout < 0 {
		return fmt.Errorf("config: negative translate timeout %v", c.TranslateTimeout)
	}
	if c.TranslateRetries < 0 {
		return fmt.Errorf("config: negative translate retries %d", c.TranslateRetries)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level: %w", err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
