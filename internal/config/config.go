package config

import (
	"fmt"
	"os"
	"time"

	"github.com/aescanero/dago-childcare-router/internal/router"
	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the routing worker
type Config struct {
	// Worker configuration
	WorkerID string `env:"WORKER_ID" envDefault:"childcare-router-1"`

	// Redis configuration
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Stream configuration
	StreamKey     string        `env:"ROUTER_STREAM" envDefault:"childcare.route"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"childcare-routers"`
	ResultStream  string        `env:"RESULT_STREAM" envDefault:"childcare.dispatch"`
	BlockTime     time.Duration `env:"BLOCK_TIME" envDefault:"1s"`

	// Routing configuration
	Strategy     string `env:"ROUTING_STRATEGY" envDefault:"keyword"`
	RegistryPath string `env:"REGISTRY_PATH" envDefault:""`

	// LLM configuration (coordinator delegate)
	LLMProvider string        `env:"LLM_PROVIDER" envDefault:"anthropic"`
	LLMAPIKey   string        `env:"LLM_API_KEY"`
	LLMModel    string        `env:"LLM_MODEL" envDefault:"claude-sonnet-4-20250514"`
	LLMTimeout  time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`

	// Health check configuration
	HealthPort int `env:"HEALTH_PORT" envDefault:"8082"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration and normalizes ROUTING_STRATEGY
func (c *Config) Validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("WORKER_ID is required")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.StreamKey == "" {
		return fmt.Errorf("ROUTER_STREAM is required")
	}

	if c.ConsumerGroup == "" {
		return fmt.Errorf("CONSUMER_GROUP is required")
	}

	if c.ResultStream == "" {
		return fmt.Errorf("RESULT_STREAM is required")
	}

	if c.BlockTime <= 0 {
		return fmt.Errorf("BLOCK_TIME must be positive")
	}

	kind, err := router.ParseKind(c.Strategy)
	if err != nil {
		return fmt.Errorf("ROUTING_STRATEGY: %w", err)
	}
	c.Strategy = string(kind)

	if c.RegistryPath != "" {
		if _, err := os.Stat(c.RegistryPath); err != nil {
			return fmt.Errorf("REGISTRY_PATH: %w", err)
		}
	}

	// LLM_API_KEY is optional; without it the coordinator keeps deferred requests

	if c.LLMProvider == "" {
		return fmt.Errorf("LLM_PROVIDER is required")
	}

	if c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}

	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}

	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("HEALTH_PORT must be between 1 and 65535")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	registry := c.RegistryPath
	if registry == "" {
		registry = "<embedded>"
	}
	return fmt.Sprintf(
		"Config{WorkerID=%s, RedisAddr=%s, RedisDB=%d, StreamKey=%s, ConsumerGroup=%s, ResultStream=%s, "+
			"Strategy=%s, Registry=%s, LLMProvider=%s, LLMModel=%s, LLMKeySet=%v, HealthPort=%d, LogLevel=%s}",
		c.WorkerID,
		c.RedisAddr,
		c.RedisDB,
		c.StreamKey,
		c.ConsumerGroup,
		c.ResultStream,
		c.Strategy,
		registry,
		c.LLMProvider,
		c.LLMModel,
		c.LLMAPIKey != "",
		c.HealthPort,
		c.LogLevel,
	)
}
