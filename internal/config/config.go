// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

// Package config loads credcore settings from defaults, an optional YAML
// file, command-line flags and the environment, in that order.
package config

import (
	"net/url"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Deployment environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full credcore configuration.
type Config struct {
	Env         string        `koanf:"env" json:"env,omitempty" yaml:"env" jsonschema:"enum=development,enum=production,description=Deployment environment; production marks the session cookie Secure"`
	HTTPAddr    string        `koanf:"http_addr" json:"http_addr,omitempty" yaml:"http_addr" jsonschema:"description=Listen address of the auth HTTP API"`
	MetricsAddr string        `koanf:"metrics_addr" json:"metrics_addr,omitempty" yaml:"metrics_addr" jsonschema:"description=Listen address for /metrics and health probes; empty disables"`
	LogFormat   string        `koanf:"log_format" json:"log_format,omitempty" yaml:"log_format" jsonschema:"enum=json,enum=text"`
	LogLevel    string        `koanf:"log_level" json:"log_level,omitempty" yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	DatabaseURL string        `koanf:"database_url" json:"database_url,omitempty" yaml:"database_url" jsonschema:"description=PostgreSQL connection URL; falls back to DATABASE_URL"`
	RedisURL    string        `koanf:"redis_url" json:"redis_url,omitempty" yaml:"redis_url" jsonschema:"description=Redis connection URL; falls back to REDIS_URL"`
	Auth        AuthConfig    `koanf:"auth" json:"auth,omitempty" yaml:"auth"`
	Session     SessionConfig `koanf:"session" json:"session,omitempty" yaml:"session"`
}

// AuthConfig configures registration and login.
type AuthConfig struct {
	GenericLoginErrors bool         `koanf:"generic_login_errors" json:"generic_login_errors,omitempty" yaml:"generic_login_errors" jsonschema:"description=Report unknown usernames and wrong passwords identically"`
	Argon2             Argon2Config `koanf:"argon2" json:"argon2,omitempty" yaml:"argon2"`
}

// Argon2Config holds the argon2id cost parameters for new hashes.
type Argon2Config struct {
	MemoryKiB  uint32 `koanf:"memory_kib" json:"memory_kib,omitempty" yaml:"memory_kib" jsonschema:"minimum=8"`
	Iterations uint32 `koanf:"iterations" json:"iterations,omitempty" yaml:"iterations" jsonschema:"minimum=1"`
	Threads    uint8  `koanf:"threads" json:"threads,omitempty" yaml:"threads" jsonschema:"minimum=1,maximum=255"`
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieName string `koanf:"cookie_name" json:"cookie_name,omitempty" yaml:"cookie_name" jsonschema:"pattern=^[A-Za-z0-9_-]+$"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env:         EnvDevelopment,
		HTTPAddr:    ":4000",
		MetricsAddr: "127.0.0.1:9100",
		LogFormat:   "json",
		LogLevel:    "info",
		Auth: AuthConfig{
			Argon2: Argon2Config{
				MemoryKiB:  64 * 1024,
				Iterations: 3,
				Threads:    4,
			},
		},
		Session: SessionConfig{CookieName: "qid"},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"env":                  "env",
	"http-addr":            "http_addr",
	"metrics-addr":         "metrics_addr",
	"log-format":           "log_format",
	"log-level":            "log_level",
	"database-url":         "database_url",
	"redis-url":            "redis_url",
	"generic-login-errors": "auth.generic_login_errors",
	"cookie-name":          "session.cookie_name",
}

// RegisterFlags adds the override flags Load understands to fs. Defaults
// shown in help come from Default; only flags set explicitly override.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("env", d.Env, "deployment environment (development or production)")
	fs.String("http-addr", d.HTTPAddr, "auth HTTP API listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")
	fs.String("redis-url", "", "Redis URL (default: $REDIS_URL)")
	fs.Bool("generic-login-errors", d.Auth.GenericLoginErrors, "report login failures without revealing which field was wrong")
	fs.String("cookie-name", d.Session.CookieName, "session cookie name")
}

// Load builds the effective configuration. path may be empty; flags may be
// nil. The result has been validated.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return oops.Code("CONFIG_INVALID").With("field", "env").
			Errorf("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").With("field", "http_addr").Errorf("http_addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").With("field", "log_format").
			Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").With("field", "log_level").
			Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	if c.Session.CookieName == "" {
		return oops.Code("CONFIG_INVALID").With("field", "session.cookie_name").Errorf("session.cookie_name is required")
	}
	return nil
}

// RequireDatabase reports a missing database URL.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").With("field", "database_url").
			Errorf("database_url is required (set --database-url, the config file, or DATABASE_URL)")
	}
	return nil
}

// RequireRedis reports a missing Redis URL.
func (c *Config) RequireRedis() error {
	if c.RedisURL == "" {
		return oops.Code("CONFIG_INVALID").With("field", "redis_url").
			Errorf("redis_url is required (set --redis-url, the config file, or REDIS_URL)")
	}
	return nil
}

// IsProduction reports whether Env is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Redacted returns a copy safe to print: URL passwords are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.DatabaseURL = redactURL(c.DatabaseURL)
	out.RedisURL = redactURL(c.RedisURL)
	return &out
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
