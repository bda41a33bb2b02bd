package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given; it may be absent
const DefaultPath = "/etc/fragfeed/config.yml"

// EnvPrefix prefixes every environment override, e.g. FRAGFEED_NATS_URL
const EnvPrefix = "FRAGFEED_"

// Config holds the application configuration
type Config struct {
	Namespace  string           `yaml:"namespace" env:"NAMESPACE"`
	Timezone   string           `yaml:"timezone" env:"TIMEZONE"`
	Log        LogConfig        `yaml:"log" envPrefix:"LOG_"`
	NATS       NATSConfig       `yaml:"nats" envPrefix:"NATS_"`
	EventLog   EventLogConfig   `yaml:"event_log" envPrefix:"EVENT_LOG_"`
	Collector  CollectorConfig  `yaml:"collector" envPrefix:"COLLECTOR_"`
	GameServer GameServerConfig `yaml:"game_server" envPrefix:"GAME_SERVER_"`
	HTTP       HTTPConfig       `yaml:"http" envPrefix:"HTTP_"`
	Notify     NotifyConfig     `yaml:"notify" envPrefix:"NOTIFY_"`
	Auth       AuthConfig       `yaml:"auth" envPrefix:"AUTH_"`
}

// LogConfig selects the log level and encoding
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // json, console, or empty to pick by terminal
}

// NATSConfig holds the broker connection settings
type NATSConfig struct {
	URL      string `yaml:"url" env:"URL"`
	Embedded bool   `yaml:"embedded" env:"EMBEDDED"`
	Port     int    `yaml:"port" env:"PORT"`
}

// EventLogConfig selects the durable event log backend
type EventLogConfig struct {
	Backend  string `yaml:"backend" env:"BACKEND"` // sqlite or redis
	Path     string `yaml:"path" env:"PATH"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	RedisKey string `yaml:"redis_key" env:"REDIS_KEY"`
}

// CollectorConfig points at the raw server log
type CollectorConfig struct {
	LogPath   string `yaml:"log_path" env:"LOG_PATH"`
	FromStart bool   `yaml:"from_start" env:"FROM_START"`
}

// GameServerConfig is the UDP address probed for status; empty disables it
type GameServerConfig struct {
	Address string `yaml:"address" env:"ADDRESS"`
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	Port       int    `yaml:"port" env:"PORT"`
}

// NotifyConfig paces the notification drainer
type NotifyConfig struct {
	Interval     time.Duration `yaml:"interval" env:"INTERVAL"`
	IdleInterval time.Duration `yaml:"idle_interval" env:"IDLE_INTERVAL"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenDuration time.Duration `yaml:"token_duration" env:"TOKEN_DURATION"`
	Required      bool          `yaml:"required" env:"REQUIRED"`
}

// Load reads configuration from a YAML file, applies FRAGFEED_* environment
// overrides and fills in defaults. A missing file is only tolerated at
// DefaultPath.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Namespace == "" {
		c.Namespace = "q3server"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Oslo"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.Port == 0 {
		c.NATS.Port = 4222
	}
	if c.EventLog.Backend == "" {
		c.EventLog.Backend = "sqlite"
	}
	if c.EventLog.Path == "" {
		c.EventLog.Path = "/var/lib/fragfeed/fragfeed.db"
	}
	if c.EventLog.RedisURL == "" {
		c.EventLog.RedisURL = "redis://127.0.0.1:6379/0"
	}
	if c.EventLog.RedisKey == "" {
		c.EventLog.RedisKey = "q3log"
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Notify.Interval == 0 {
		c.Notify.Interval = time.Second
	}
	if c.Notify.IdleInterval == 0 {
		c.Notify.IdleInterval = 30 * time.Second
	}

	// Auth defaults
	if c.Auth.TokenDuration == 0 {
		c.Auth.TokenDuration = 24 * time.Hour
	}
}

func (c *Config) validate() error {
	switch c.EventLog.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("event_log.backend must be sqlite or redis, got %q", c.EventLog.Backend)
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return errors.New("auth.required needs auth.jwt_secret")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the time zone notifications and stats are rendered in
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// HTTPAddr returns the host:port the API listens on
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.ListenAddr, c.HTTP.Port)
}
