package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAddress     = ":8080"
	defaultEnvironment = "Development"
	defaultIdleTimeout = 30 * time.Minute
	defaultLifetime    = 12 * time.Hour
	defaultShutdown    = 10 * time.Second
	defaultCollection  = "accounts"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Accounts AccountsConfig `yaml:"accounts"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	Environment     string        `yaml:"environment"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SessionConfig contains cookie session settings. Keys are hex encoded.
type SessionConfig struct {
	HashKey      string        `yaml:"hash_key"`
	BlockKey     string        `yaml:"block_key"`
	CookieSecure bool          `yaml:"cookie_secure"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	Lifetime     time.Duration `yaml:"lifetime"`
}

// AccountsConfig selects the account backend. An empty FirebaseProjectID
// keeps accounts in memory.
type AccountsConfig struct {
	FirebaseProjectID string `yaml:"firebase_project_id"`
	Collection        string `yaml:"collection"`
	SeedDemo          bool   `yaml:"seed_demo"`
	PrefillDemo       bool   `yaml:"prefill_demo"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         defaultAddress,
			Environment:     defaultEnvironment,
			ShutdownTimeout: defaultShutdown,
		},
		Session: SessionConfig{
			IdleTimeout: defaultIdleTimeout,
			Lifetime:    defaultLifetime,
		},
		Accounts: AccountsConfig{
			Collection:  defaultCollection,
			SeedDemo:    true,
			PrefillDemo: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the optional YAML file at path, then applies ADOPTLY_*
// environment overrides and validates the result. A missing file is not an
// error when path is empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = parsed
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = parsed
		return nil
	}

	str("ADOPTLY_HTTP_ADDR", &cfg.Server.Address)
	str("ADOPTLY_ENVIRONMENT", &cfg.Server.Environment)
	str("ADOPTLY_SESSION_HASH_KEY", &cfg.Session.HashKey)
	str("ADOPTLY_SESSION_BLOCK_KEY", &cfg.Session.BlockKey)
	str("FIREBASE_PROJECT_ID", &cfg.Accounts.FirebaseProjectID)
	str("ADOPTLY_ACCOUNTS_COLLECTION", &cfg.Accounts.Collection)
	str("LOG_LEVEL", &cfg.Log.Level)

	return errors.Join(
		boolean("ADOPTLY_COOKIE_SECURE", &cfg.Session.CookieSecure),
		boolean("ADOPTLY_SEED_DEMO", &cfg.Accounts.SeedDemo),
		boolean("ADOPTLY_PREFILL_DEMO", &cfg.Accounts.PrefillDemo),
		duration("ADOPTLY_SESSION_IDLE_TIMEOUT", &cfg.Session.IdleTimeout),
		duration("ADOPTLY_SESSION_LIFETIME", &cfg.Session.Lifetime),
		duration("ADOPTLY_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout),
	)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("server.address is required")
	}
	if c.Session.HashKey == "" || strings.Contains(c.Session.HashKey, "${") {
		return errors.New("session.hash_key is required (set ADOPTLY_SESSION_HASH_KEY)")
	}
	hashKey, err := hex.DecodeString(c.Session.HashKey)
	if err != nil {
		return fmt.Errorf("session.hash_key must be hex: %w", err)
	}
	if len(hashKey) < 32 {
		return errors.New("session.hash_key must decode to at least 32 bytes")
	}
	if c.Session.BlockKey != "" {
		blockKey, err := hex.DecodeString(c.Session.BlockKey)
		if err != nil {
			return fmt.Errorf("session.block_key must be hex: %w", err)
		}
		switch len(blockKey) {
		case 16, 24, 32:
		default:
			return errors.New("session.block_key must decode to 16, 24 or 32 bytes")
		}
	}
	if c.Session.IdleTimeout <= 0 || c.Session.Lifetime <= 0 {
		return errors.New("session timeouts must be positive")
	}
	if c.Session.IdleTimeout > c.Session.Lifetime {
		return errors.New("session.idle_timeout must not exceed session.lifetime")
	}
	return nil
}

// SessionKeys returns the decoded hash and block keys. Call after Validate.
func (c *Config) SessionKeys() (hashKey, blockKey []byte) {
	hashKey, _ = hex.DecodeString(c.Session.HashKey)
	if c.Session.BlockKey != "" {
		blockKey, _ = hex.DecodeString(c.Session.BlockKey)
	}
	return hashKey, blockKey
}

// UseFirestore reports whether accounts live in Firestore.
func (c *Config) UseFirestore() bool {
	return strings.TrimSpace(c.Accounts.FirebaseProjectID) != ""
}

// IsDevelopment reports whether the environment label is Development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Environment, defaultEnvironment)
}
