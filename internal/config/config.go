// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads accounts service configuration from defaults, an
// optional YAML file and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/accounts/internal/xdg"
)

// DatabaseURLEnv supplies database.url when no file or flag sets it.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the full service configuration.
type Config struct {
	Database     DatabaseConfig     `koanf:"database" jsonschema:"description=PostgreSQL connection settings"`
	Tokens       TokensConfig       `koanf:"tokens" jsonschema:"description=Single-use token settings"`
	Registration RegistrationConfig `koanf:"registration" jsonschema:"description=Registration policy"`
	Server       ServerConfig       `koanf:"server" jsonschema:"description=Process-level endpoints"`
	Log          LogConfig          `koanf:"log" jsonschema:"description=Logging"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string `koanf:"url" jsonschema:"description=PostgreSQL connection URL"`
	ConnectAttempts int    `koanf:"connect_attempts" jsonschema:"minimum=1,description=Connection attempts before giving up"`
}

// TokensConfig configures recovery tokens.
type TokensConfig struct {
	TTL           time.Duration `koanf:"ttl" jsonschema:"type=string,pattern=^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$,description=Token lifetime"`
	SweepInterval time.Duration `koanf:"sweep_interval" jsonschema:"type=string,pattern=^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$,description=How often expired tokens are purged; 0 disables"`
}

// RegistrationConfig configures who may register.
type RegistrationConfig struct {
	AllowedEmails []string `koanf:"allowed_emails" jsonschema:"description=Glob patterns an email must match; empty allows all"`
}

// ServerConfig configures the observability endpoint and recovery links.
type ServerConfig struct {
	MetricsAddr     string `koanf:"metrics_addr" jsonschema:"description=Listen address for /metrics and health probes"`
	RecoveryBaseURL string `koanf:"recovery_base_url" jsonschema:"description=Base URL recovery tokens are appended to"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Format string `koanf:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{ConnectAttempts: 5},
		Tokens: TokensConfig{
			TTL:           24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Server: ServerConfig{
			MetricsAddr:     "127.0.0.1:9100",
			RecoveryBaseURL: "http://localhost:8080/reset-password",
		},
		Log: LogConfig{Format: "json", Level: "info"},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"database-url":      "database.url",
	"token-ttl":         "tokens.ttl",
	"sweep-interval":    "tokens.sweep_interval",
	"metrics-addr":      "server.metrics_addr",
	"recovery-base-url": "server.recovery_base_url",
	"log-format":        "log.format",
	"log-level":         "log.level",
}

// RegisterFlags adds the config override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("database-url", "", "PostgreSQL connection URL (default $"+DatabaseURLEnv+")")
	fs.Duration("token-ttl", d.Tokens.TTL, "recovery token lifetime")
	fs.Duration("sweep-interval", d.Tokens.SweepInterval, "expired token sweep interval (0 disables)")
	fs.String("metrics-addr", d.Server.MetricsAddr, "metrics and health listen address")
	fs.String("recovery-base-url", d.Server.RecoveryBaseURL, "base URL for recovery links")
	fs.String("log-format", d.Log.Format, "log format (json, text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// Load builds a Config. path names a YAML file; when empty the XDG default
// file is used if it exists. Only flags the user changed override the file.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		p, err := xdg.ConfigFile()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := loadFile(k, path, explicit); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", nil, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(DatabaseURLEnv)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := ValidateYAML(data); err != nil {
		return oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// Validate checks values the schema cannot express.
func (c *Config) Validate() error {
	if c.Database.ConnectAttempts < 1 {
		return oops.Code("CONFIG_INVALID").With("key", "database.connect_attempts").Errorf("must be at least 1")
	}
	if c.Tokens.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "tokens.ttl").Errorf("must be positive")
	}
	if c.Tokens.SweepInterval < 0 {
		return oops.Code("CONFIG_INVALID").With("key", "tokens.sweep_interval").Errorf("must not be negative")
	}
	u, err := url.Parse(c.Server.RecoveryBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "server.recovery_base_url").
			With("value", c.Server.RecoveryBaseURL).
			Errorf("must be an absolute URL")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").With("key", "log.format").Errorf("must be json or text")
	}
	return nil
}

// RecoveryLink returns the user-facing recovery URL for token.
func (c *Config) RecoveryLink(token string) string {
	u, err := url.Parse(c.Server.RecoveryBaseURL)
	if err != nil {
		return c.Server.RecoveryBaseURL + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
