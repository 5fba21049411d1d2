package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/dyluth/savestash/pkg/store"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "savestash.yml"

// Environment variables that override the config file.
const (
	EnvRedisURL = "SAVESTASH_REDIS_URL"
	EnvProfile  = "SAVESTASH_PROFILE"
	EnvListen   = "SAVESTASH_LISTEN"
)

const (
	defaultRedisURL = "redis://localhost:6379"
	defaultProfile  = "default"
	defaultListen   = "127.0.0.1:8350"
	defaultImage    = "redis:7-alpine"
	defaultPort     = 6379
)

// Config represents savestash.yml.
type Config struct {
	Version string        `yaml:"version"`
	Profile string        `yaml:"profile"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Capture CaptureConfig `yaml:"capture"`
	Backend BackendConfig `yaml:"backend"`
}

// StoreConfig locates the Redis store.
type StoreConfig struct {
	RedisURL string `yaml:"redis_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// CaptureConfig configures the capture daemon.
type CaptureConfig struct {
	FetchMeta bool `yaml:"fetch_meta"` // look up page title and favicon when enabling a game
}

// BackendConfig configures the Docker-managed local Redis.
type BackendConfig struct {
	Image string `yaml:"image,omitempty"`
	Port  int    `yaml:"port,omitempty"` // preferred host port; the next free port is used if taken
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{Version: "1.0"}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Profile == "" {
		c.Profile = defaultProfile
	}
	if c.Store.RedisURL == "" {
		c.Store.RedisURL = defaultRedisURL
	}
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	if c.Backend.Image == "" {
		c.Backend.Image = defaultImage
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = defaultPort
	}
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := store.ValidateProfile(c.Profile); err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	if _, err := redis.ParseURL(c.Store.RedisURL); err != nil {
		return fmt.Errorf("store.redis_url: %w", err)
	}

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen: %w", err)
	}

	if c.Backend.Port < 1 || c.Backend.Port > 65535 {
		return fmt.Errorf("backend.port must be between 1 and 65535, got %d", c.Backend.Port)
	}

	return nil
}

// RedisOptions returns client options for the configured store.
func (c *Config) RedisOptions() (*redis.Options, error) {
	return redis.ParseURL(c.Store.RedisURL)
}

// Load reads, defaults and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Resolve builds the effective configuration: the file at path if it exists
// (defaults otherwise), then variables from envFile if it exists, then the
// process environment.
func Resolve(path, envFile string) (*Config, error) {
	config := Default()
	if _, err := os.Stat(path); err == nil {
		if config, err = Load(path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the environment
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	config.ApplyEnv(os.LookupEnv)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		c.Store.RedisURL = v
	}
	if v, ok := lookup(EnvProfile); ok && v != "" {
		c.Profile = v
	}
	if v, ok := lookup(EnvListen); ok && v != "" {
		c.Server.Listen = v
	}
}

// Write saves c to path. It refuses to overwrite an existing file.
func (c *Config) Write(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
