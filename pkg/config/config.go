package config

import (
	"fmt"
	"os"
	"time"

	"rosterbot/pkg/validation"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment override, e.g. ROSTERBOT_VK_TOKEN.
const EnvPrefix = "ROSTERBOT_"

// Storage drivers.
const (
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address" env:"ADDRESS"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server" envPrefix:"SERVER_"`

	Bot struct {
		SweepEveryEvents int           `yaml:"sweep_every_events" env:"SWEEP_EVERY_EVENTS"`
		SweepInterval    time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
		SessionTTL       time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
		PromptTTL        time.Duration `yaml:"prompt_ttl" env:"PROMPT_TTL"`
		LookupTimeout    time.Duration `yaml:"lookup_timeout"`
		ProfileCacheTTL  time.Duration `yaml:"profile_cache_ttl"`
		QueueSize        int           `yaml:"queue_size"`
		ProfileHosts     []string      `yaml:"profile_hosts" env:"PROFILE_HOSTS" envSeparator:","`
	} `yaml:"bot" envPrefix:"BOT_"`

	VK struct {
		APIURL            string        `yaml:"api_url" env:"API_URL"`
		Token             string        `yaml:"token" env:"TOKEN"`
		GroupID           int64         `yaml:"group_id" env:"GROUP_ID"`
		APIVersion        string        `yaml:"api_version" env:"API_VERSION"`
		Confirmation      string        `yaml:"confirmation" env:"CONFIRMATION"`
		Secret            string        `yaml:"secret" env:"SECRET"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Timeout           time.Duration `yaml:"timeout"`
	} `yaml:"vk" envPrefix:"VK_"`

	Storage struct {
		Driver     string `yaml:"driver" env:"DRIVER"`
		Dir        string `yaml:"dir" env:"DIR"`
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"storage" envPrefix:"STORAGE_"`

	Backup struct {
		Enabled  bool          `yaml:"enabled" env:"ENABLED"`
		Dir      string        `yaml:"dir" env:"DIR"`
		Interval time.Duration `yaml:"interval" env:"INTERVAL"`
		Keep     int           `yaml:"keep" env:"KEEP"`
	} `yaml:"backup" envPrefix:"BACKUP_"`

	Redis struct {
		Address  string `yaml:"address" env:"ADDRESS"`
		Password string `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis" envPrefix:"REDIS_"`

	Logging struct {
		Level  string `yaml:"level" env:"LEVEL"`
		Format string `yaml:"format" env:"FORMAT"`
	} `yaml:"logging" envPrefix:"LOG_"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled" env:"PROMETHEUS_ENABLED"`
	} `yaml:"monitoring" envPrefix:"MONITORING_"`

	Tracing struct {
		Enabled        bool    `yaml:"enabled" env:"ENABLED"`
		JaegerEndpoint string  `yaml:"jaeger_endpoint" env:"JAEGER_ENDPOINT"`
		Environment    string  `yaml:"environment" env:"ENVIRONMENT"`
		SampleRate     float64 `yaml:"sample_rate"`
	} `yaml:"tracing" envPrefix:"TRACING_"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled" env:"ENABLED"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`
	} `yaml:"rate_limiting" envPrefix:"RATE_LIMITING_"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Bot
	if c.Bot.SweepEveryEvents < 0 {
		return fmt.Errorf("bot.sweep_every_events must be >= 0")
	}
	if c.Bot.SweepInterval <= 0 {
		return fmt.Errorf("bot.sweep_interval must be > 0")
	}
	if c.Bot.SessionTTL <= 0 {
		return fmt.Errorf("bot.session_ttl must be > 0")
	}
	if c.Bot.PromptTTL < 0 {
		return fmt.Errorf("bot.prompt_ttl must be >= 0")
	}
	if c.Bot.LookupTimeout <= 0 {
		return fmt.Errorf("bot.lookup_timeout must be > 0")
	}
	if c.Bot.QueueSize <= 0 {
		return fmt.Errorf("bot.queue_size must be > 0")
	}
	for _, host := range c.Bot.ProfileHosts {
		if err := validation.ValidateHost(host); err != nil {
			return fmt.Errorf("bot.profile_hosts: %w", err)
		}
	}

	// VK
	if err := validation.ValidateURL(c.VK.APIURL); err != nil {
		return fmt.Errorf("vk.api_url: %w", err)
	}
	if c.VK.RequestsPerSecond <= 0 {
		return fmt.Errorf("vk.requests_per_second must be > 0")
	}
	if c.VK.Timeout <= 0 {
		return fmt.Errorf("vk.timeout must be > 0")
	}

	// Storage
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir must not be empty when storage.driver=file")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path must not be empty when storage.driver=sqlite")
		}
	case DriverRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when storage.driver=redis")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when storage.driver=redis")
		}
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir must not be empty: it is the redis fallback")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	// Backup
	if c.Backup.Dir == "" {
		return fmt.Errorf("backup.dir must not be empty")
	}
	if c.Backup.Enabled && c.Backup.Interval <= 0 {
		return fmt.Errorf("backup.interval must be > 0 when backups are enabled")
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup.keep must be >= 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Tracing
	if c.Tracing.Enabled {
		if err := validation.ValidateURL(c.Tracing.JaegerEndpoint); err != nil {
			return fmt.Errorf("tracing.jaeger_endpoint: %w", err)
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// ValidateTransport checks the settings only the live bot needs.
func (c *Config) ValidateTransport() error {
	if err := validation.ValidateNonEmptyString(c.VK.Token, "vk.token"); err != nil {
		return err
	}
	if c.VK.GroupID <= 0 {
		return fmt.Errorf("vk.group_id must be > 0")
	}
	if err := validation.ValidateStringLength(c.VK.Confirmation, 1, 64, "vk.confirmation"); err != nil {
		return err
	}
	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// fall back to defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 15 * time.Second

	cfg.Bot.SweepEveryEvents = 100
	cfg.Bot.SweepInterval = 10 * time.Minute
	cfg.Bot.SessionTTL = 24 * time.Hour
	cfg.Bot.PromptTTL = 10 * time.Minute
	cfg.Bot.LookupTimeout = 5 * time.Second
	cfg.Bot.ProfileCacheTTL = 10 * time.Minute
	cfg.Bot.QueueSize = 256
	cfg.Bot.ProfileHosts = []string{"vk.com", "m.vk.com", "vk.ru"}

	cfg.VK.APIURL = "https://api.vk.com/method"
	cfg.VK.APIVersion = "5.199"
	cfg.VK.RequestsPerSecond = 20
	cfg.VK.Timeout = 10 * time.Second

	cfg.Storage.Driver = DriverFile
	cfg.Storage.Dir = "data"
	cfg.Storage.SQLitePath = "data/roster.db"

	cfg.Backup.Enabled = false
	cfg.Backup.Dir = "data/backups"
	cfg.Backup.Interval = 24 * time.Hour
	cfg.Backup.Keep = 14

	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerEndpoint = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	return cfg
}

// applyEnvOverrides overlays ROSTERBOT_* variables. Unset variables keep the
// file or default value.
func (c *Config) applyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
