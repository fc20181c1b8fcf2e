package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "Santiago, Chile", cfg.Location)
	assert.Equal(t, "bolt", cfg.CacheBackend)
	assert.Equal(t, "api", cfg.SunProvider)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.MQTTEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gammad.yaml")
	yamlData := []byte("location: Oslo, Norway\nsunrise: \"06:30\"\nlog_level: debug\nhttp_timeout: 3s\n")
	require.NoError(t, os.WriteFile(path, yamlData, 0o600))

	t.Setenv("GAMMAD_LOG_LEVEL", "warn")
	t.Setenv("GAMMAD_SUNSET", "21:15")

	cfg, err := Load([]string{"--config", path, "--location", "Lima, Peru"})
	require.NoError(t, err)

	// Flag beats file
	assert.Equal(t, "Lima, Peru", cfg.Location)
	// Env beats file
	assert.Equal(t, "warn", cfg.LogLevel)
	// File beats defaults
	assert.Equal(t, "06:30", cfg.ManualSunrise)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	// Env only
	assert.Equal(t, "21:15", cfg.ManualSunset)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoad_FlagsBeatEnv(t *testing.T) {
	t.Setenv("GAMMAD_NO_WEATHER", "false")
	t.Setenv("GAMMAD_LOCATION", "Quito, Ecuador")

	cfg, err := Load([]string{"--no-weather", "--no-fullscreen", "--clear-cache", "-l", "Bogota"})
	require.NoError(t, err)

	assert.True(t, cfg.DisableWeather)
	assert.True(t, cfg.DisableFullscreen)
	assert.True(t, cfg.ClearCache)
	assert.Equal(t, "Bogota", cfg.Location)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad cache backend", func(c *Config) { c.CacheBackend = "sqlite" }, true},
		{"redis without host", func(c *Config) { c.CacheBackend = "redis"; c.RedisHost = "" }, true},
		{"redis ok", func(c *Config) { c.CacheBackend = "redis" }, false},
		{"bad sun provider", func(c *Config) { c.SunProvider = "moon" }, true},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"mqtt bad port", func(c *Config) { c.MQTTBroker = "localhost"; c.MQTTPort = 0 }, true},
		{"negative health port", func(c *Config) { c.HealthPort = -1 }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddresses(t *testing.T) {
	cfg := NewConfig()
	cfg.MQTTBroker = "broker.local"
	cfg.CacheDir = "/tmp/gammad"

	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTTAddress())
	assert.Equal(t, "localhost:6379", cfg.RedisAddress())
	assert.Equal(t, "/tmp/gammad/cache.db", cfg.CachePath())
	assert.True(t, cfg.MQTTEnabled())
}
