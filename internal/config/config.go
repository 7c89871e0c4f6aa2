package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "ANISCOPE_CONFIG"

// envPrefix namespaces environment overrides, e.g.
// ANISCOPE_DATABASE__URL maps to database.url.
const envPrefix = "ANISCOPE_"

// defaultConfigPaths are searched in order; the first existing file wins.
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/aniscope/config.yaml",
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port         string        `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig holds connection-pool settings for the primary store.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxConns        int32         `koanf:"max_conns" validate:"gt=0"`
	MinConns        int32         `koanf:"min_conns" validate:"gte=0,ltefield=MaxConns"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	ConnTimeout     time.Duration `koanf:"conn_timeout"`
	StatementCache  int           `koanf:"statement_cache" validate:"gte=0"`
}

// AniListConfig holds upstream GraphQL API settings.
type AniListConfig struct {
	URL        string        `koanf:"url" validate:"required,url"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
	RatePerSec float64       `koanf:"rate_per_sec" validate:"gte=0"`
}

// SnapshotConfig holds the analytics snapshot directory.
type SnapshotConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}

// Config captures all runtime configuration.
type Config struct {
	Server    ServerConfig   `koanf:"server"`
	Database  DatabaseConfig `koanf:"database"`
	AniList   AniListConfig  `koanf:"anilist"`
	Snapshots SnapshotConfig `koanf:"snapshots"`
	Log       LogConfig      `koanf:"log"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        2,
			MaxConnIdleTime: 5 * time.Minute,
			MaxConnLifetime: time.Hour,
			ConnTimeout:     10 * time.Second,
			StatementCache:  256,
		},
		AniList: AniListConfig{
			URL:        "https://graphql.anilist.co",
			Timeout:    10 * time.Second,
			RatePerSec: 1.5,
		},
		Snapshots: SnapshotConfig{
			Dir: "snapshots",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load assembles configuration from defaults, an optional YAML file, and
// environment overrides, then validates the result.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := configFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func configFilePath() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
