package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the gammad daemon
type Config struct {
	// Location configuration
	Location string `yaml:"location"`

	// Feature toggles
	DisableFullscreen bool `yaml:"disable_fullscreen"`
	DisableWeather    bool `yaml:"disable_weather"`
	ClearCache        bool `yaml:"clear_cache"`

	// Manual sun-time overrides (HH:MM, 24-hour)
	ManualSunrise string `yaml:"sunrise"`
	ManualSunset  string `yaml:"sunset"`

	// Cache configuration
	CacheBackend string `yaml:"cache_backend"`
	CacheDir     string `yaml:"cache_dir"`

	// Data sources
	SunProvider    string        `yaml:"sun_provider"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	GeocodeURL     string        `yaml:"geocode_url"`
	SunAPIURL      string        `yaml:"sun_api_url"`
	WeatherURL     string        `yaml:"weather_url"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`

	// Redis configuration (cache_backend: redis)
	RedisHost     string `yaml:"redis_host"`
	RedisPort     int    `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// MQTT configuration (disabled when broker is empty)
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTPort     int    `yaml:"mqtt_port"`
	MQTTUser     string `yaml:"mqtt_user"`
	MQTTPassword string `yaml:"mqtt_password"`
	MQTTClientID string `yaml:"mqtt_client_id"`

	// Service configuration
	ServiceName string `yaml:"service_name"`
	HealthPort  int    `yaml:"health_port"`
	LogLevel    string `yaml:"log_level"`

	// ConfigFile is the optional YAML file applied before env and flags
	ConfigFile string `yaml:"-"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Location:       "Santiago, Chile",
		CacheBackend:   "bolt",
		CacheDir:       defaultCacheDir(),
		SunProvider:    "api",
		HTTPTimeout:    5 * time.Second,
		GeocodeURL:     "https://nominatim.openstreetmap.org/search",
		SunAPIURL:      "https://api.sunrise-sunset.org/json",
		WeatherURL:     "https://api.open-meteo.com/v1/forecast",
		RequestsPerSec: 1,
		RedisHost:      "localhost",
		RedisPort:      6379,
		MQTTPort:       1883,
		ServiceName:    "gammad",
		HealthPort:     0,
		LogLevel:       "info",
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "gammad")
	}
	return filepath.Join(os.TempDir(), "gammad")
}

// LoadFromFile merges values from a YAML file into the config.
// Fields absent from the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	c.ConfigFile = path
	return nil
}

// LoadFromEnv loads configuration from environment variables with GAMMAD_ prefix
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("GAMMAD_LOCATION"); v != "" {
		c.Location = v
	}
	if v := os.Getenv("GAMMAD_NO_FULLSCREEN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DisableFullscreen = b
		}
	}
	if v := os.Getenv("GAMMAD_NO_WEATHER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DisableWeather = b
		}
	}
	if v := os.Getenv("GAMMAD_CLEAR_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ClearCache = b
		}
	}
	if v := os.Getenv("GAMMAD_SUNRISE"); v != "" {
		c.ManualSunrise = v
	}
	if v := os.Getenv("GAMMAD_SUNSET"); v != "" {
		c.ManualSunset = v
	}

	// Cache and data sources
	if v := os.Getenv("GAMMAD_CACHE_BACKEND"); v != "" {
		c.CacheBackend = v
	}
	if v := os.Getenv("GAMMAD_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("GAMMAD_SUN_PROVIDER"); v != "" {
		c.SunProvider = v
	}
	if v := os.Getenv("GAMMAD_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTPTimeout = d
		}
	}

	// Redis configuration
	if v := os.Getenv("GAMMAD_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("GAMMAD_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("GAMMAD_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("GAMMAD_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// MQTT configuration
	if v := os.Getenv("GAMMAD_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("GAMMAD_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("GAMMAD_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("GAMMAD_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("GAMMAD_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Service configuration
	if v := os.Getenv("GAMMAD_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("GAMMAD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// BindFlags registers command-line flags on fs, using current values as defaults
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Location, "location", "l", c.Location, "Location name used for geocoding (e.g. \"Santiago, Chile\")")
	fs.BoolVar(&c.DisableFullscreen, "no-fullscreen", c.DisableFullscreen, "Disable fullscreen detection")
	fs.BoolVar(&c.DisableWeather, "no-weather", c.DisableWeather, "Disable weather checks")
	fs.BoolVar(&c.ClearCache, "clear-cache", c.ClearCache, "Clear cached data on start")
	fs.StringVar(&c.ManualSunrise, "sunrise", c.ManualSunrise, "Manual sunrise override (HH:MM)")
	fs.StringVar(&c.ManualSunset, "sunset", c.ManualSunset, "Manual sunset override (HH:MM)")

	fs.StringVar(&c.CacheBackend, "cache-backend", c.CacheBackend, "Cache backend (bolt, redis, memory)")
	fs.StringVar(&c.CacheDir, "cache-dir", c.CacheDir, "Directory for the on-disk cache")
	fs.StringVar(&c.SunProvider, "sun-provider", c.SunProvider, "Sunrise/sunset source (api, local)")
	fs.DurationVar(&c.HTTPTimeout, "http-timeout", c.HTTPTimeout, "Timeout for outbound HTTP lookups")

	fs.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	fs.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	fs.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname (empty disables publishing)")
	fs.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	fs.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	fs.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	fs.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	fs.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port (0 disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
}

// Load applies the full hierarchy: defaults → YAML file → env → flags.
// The config file path is taken from --config or GAMMAD_CONFIG.
func Load(args []string) (*Config, error) {
	// First pass only locates the config file.
	pre := pflag.NewFlagSet("gammad", pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.Usage = func() {}
	configFile := pre.String("config", os.Getenv("GAMMAD_CONFIG"), "")
	_ = pre.Parse(args)

	c := NewConfig()
	if *configFile != "" {
		if err := c.LoadFromFile(*configFile); err != nil {
			return nil, err
		}
	}
	c.LoadFromEnv()

	fs := pflag.NewFlagSet("gammad", pflag.ContinueOnError)
	fs.String("config", *configFile, "Path to YAML config file")
	c.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	switch c.CacheBackend {
	case "bolt", "memory":
	case "redis":
		if c.RedisHost == "" {
			return fmt.Errorf("redis host is required for the redis cache backend")
		}
		if c.RedisPort <= 0 || c.RedisPort > 65535 {
			return fmt.Errorf("redis port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be bolt, redis, or memory)", c.CacheBackend)
	}

	if c.CacheBackend == "bolt" && c.CacheDir == "" {
		return fmt.Errorf("cache directory is required for the bolt cache backend")
	}

	if c.SunProvider != "api" && c.SunProvider != "local" {
		return fmt.Errorf("invalid sun provider: %s (must be api or local)", c.SunProvider)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}

	if c.MQTTBroker != "" && (c.MQTTPort <= 0 || c.MQTTPort > 65535) {
		return fmt.Errorf("MQTT port must be between 1 and 65535")
	}

	if c.HealthPort < 0 || c.HealthPort > 65535 {
		return fmt.Errorf("health port must be between 0 and 65535")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// MQTTEnabled reports whether an MQTT broker was configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// CachePath returns the bolt database file path
func (c *Config) CachePath() string {
	return filepath.Join(c.CacheDir, "cache.db")
}
