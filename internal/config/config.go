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

// Answer log backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
		Relay    bool   `yaml:"relay" env:"REDIS_RELAY"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path" env:"SQLITE_PATH"`
	} `yaml:"sqlite"`
	Answers struct {
		Backend string `yaml:"backend" env:"ANSWER_BACKEND"`
	} `yaml:"answers"`
	Questions struct {
		TTL string `yaml:"ttl" env:"QUESTION_TTL"`
	} `yaml:"questions"`
	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies environment overrides.
// A missing file yields a config built from the environment alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// AnswerBackend picks the configured answer log, defaulting to the first
// configured store in the order postgres, redis, memory.
func (c Config) AnswerBackend() string {
	if c.Answers.Backend != "" {
		return c.Answers.Backend
	}
	switch {
	case c.Postgres.URL != "":
		return BackendPostgres
	case c.Redis.Addr != "":
		return BackendRedis
	}
	return BackendMemory
}

// Validate rejects topologies that cannot work. With the relay on, several
// instances serve one session, so questions, stats and answers must live in
// shared stores rather than per-process memory or a local SQLite file.
func (c Config) Validate() error {
	if !c.Redis.Relay {
		return nil
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.relay requires redis.addr")
	}
	if c.Postgres.URL == "" {
		return fmt.Errorf("redis.relay requires postgres.url for shared questions and stats")
	}
	switch backend := c.AnswerBackend(); backend {
	case BackendRedis, BackendPostgres:
		return nil
	default:
		return fmt.Errorf("redis.relay requires a shared answer backend, got %q", backend)
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
