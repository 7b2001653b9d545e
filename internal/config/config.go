package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultCacheTTL      = 10 * time.Minute
	defaultRemoteTimeout = 3 * time.Second
	defaultPageSize      = 50
	maxPageSize          = 100
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Leaderboard struct {
		CacheTTL        string `yaml:"cache_ttl"`
		RemoteURL       string `yaml:"remote_url"`
		RemoteTimeout   string `yaml:"remote_timeout"`
		DefaultPageSize int    `yaml:"default_page_size"`
		MaxPageSize     int    `yaml:"max_page_size"`
	} `yaml:"leaderboard"`
	Events struct {
		Enabled       bool     `yaml:"enabled"`
		Driver        string   `yaml:"driver"`
		KafkaBrokers  []string `yaml:"kafka_brokers"`
		Topic         string   `yaml:"topic"`
		ConsumerGroup string   `yaml:"consumer_group"`
	} `yaml:"events"`
	Fixtures struct {
		Path string `yaml:"path"`
	} `yaml:"fixtures"`
}

// Load reads YAML config from path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}

func (c Config) CacheTTL() time.Duration {
	return TTLDuration(c.Leaderboard.CacheTTL, defaultCacheTTL)
}

func (c Config) RemoteTimeout() time.Duration {
	return TTLDuration(c.Leaderboard.RemoteTimeout, defaultRemoteTimeout)
}

// MaxPageSize is capped at 100 whatever the file says.
func (c Config) MaxPageSize() int {
	if c.Leaderboard.MaxPageSize <= 0 || c.Leaderboard.MaxPageSize > maxPageSize {
		return maxPageSize
	}
	return c.Leaderboard.MaxPageSize
}

func (c Config) DefaultPageSize() int {
	size := c.Leaderboard.DefaultPageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if max := c.MaxPageSize(); size > max {
		size = max
	}
	return size
}

func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
