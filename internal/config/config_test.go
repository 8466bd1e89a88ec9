package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aescanero/dago-childcare-router/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "childcare-router-1", cfg.WorkerID)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "childcare.route", cfg.StreamKey)
	assert.Equal(t, "childcare-routers", cfg.ConsumerGroup)
	assert.Equal(t, "childcare.dispatch", cfg.ResultStream)
	assert.Equal(t, time.Second, cfg.BlockTime)
	assert.Equal(t, "keyword", cfg.Strategy)
	assert.Empty(t, cfg.RegistryPath)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 8082, cfg.HealthPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("specialists: []\n"), 0o600))

	t.Setenv("WORKER_ID", "router-7")
	t.Setenv("ROUTING_STRATEGY", "delegating")
	t.Setenv("REGISTRY_PATH", path)
	t.Setenv("BLOCK_TIME", "250ms")
	t.Setenv("LLM_API_KEY", "secret-key")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "router-7", cfg.WorkerID)
	assert.Equal(t, "delegating", cfg.Strategy)
	assert.Equal(t, path, cfg.RegistryPath)
	assert.Equal(t, 250*time.Millisecond, cfg.BlockTime)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"ROUTING_STRATEGY": "random",
		"LOG_LEVEL":        "verbose",
		"HEALTH_PORT":      "70000",
		"BLOCK_TIME":       "0s",
		"LLM_TIMEOUT":      "-1s",
		"REGISTRY_PATH":    "/nonexistent/registry.yaml",
		"REDIS_DB":         "not-a-number",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	for name, mutate := range map[string]func(*Config){
		"worker id":      func(c *Config) { c.WorkerID = "" },
		"redis addr":     func(c *Config) { c.RedisAddr = "" },
		"stream key":     func(c *Config) { c.StreamKey = "" },
		"consumer group": func(c *Config) { c.ConsumerGroup = "" },
		"result stream":  func(c *Config) { c.ResultStream = "" },
		"llm provider":   func(c *Config) { c.LLMProvider = "" },
		"llm model":      func(c *Config) { c.LLMModel = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestString_HidesSecrets(t *testing.T) {
	t.Setenv("LLM_API_KEY", "secret-key")
	t.Setenv("REDIS_PASS", "redis-secret")

	cfg, err := Load()
	require.NoError(t, err)

	s := cfg.String()
	assert.NotContains(t, s, "secret-key")
	assert.NotContains(t, s, "redis-secret")
	assert.Contains(t, s, "LLMKeySet=true")
	assert.Contains(t, s, "Registry=<embedded>")
}

func TestLoad_StrategyIsNormalized(t *testing.T) {
	for value, want := range map[string]router.Kind{
		"Keyword":    router.KindKeyword,
		" INTENT ":   router.KindIntent,
		"Delegating": router.KindDelegating,
	} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("ROUTING_STRATEGY", value)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, string(want), cfg.Strategy)
		})
	}
}
