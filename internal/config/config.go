// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoki.
//
// go-cryptoki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads the p11ctl configuration from a YAML file, CRYPTOKI_
// environment variables and built-in defaults, in increasing order of
// precedence below command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
)

// EnvPrefix prefixes every environment override, e.g. CRYPTOKI_TOKEN_PIN.
const EnvPrefix = "CRYPTOKI"

const (
	TokenSoft   = "soft"
	TokenPKCS11 = "pkcs11"

	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete p11ctl configuration.
type Config struct {
	Token   TokenConfig    `mapstructure:"token" yaml:"token"`
	Soft    SoftConfig     `mapstructure:"soft" yaml:"soft"`
	Pool    PoolConfig     `mapstructure:"pool" yaml:"pool"`
	Logging logging.Config `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// TokenConfig selects the token p11ctl talks to.
type TokenConfig struct {
	// Type is "soft" for the built-in software token or "pkcs11" for a
	// shared library.
	Type    string `mapstructure:"type" yaml:"type" validate:"oneof=soft pkcs11"`
	Library string `mapstructure:"library" yaml:"library,omitempty"`

	// Slot is used unless TokenLabel names a token.
	Slot       uint64 `mapstructure:"slot" yaml:"slot"`
	TokenLabel string `mapstructure:"token_label" yaml:"token_label,omitempty" validate:"max=32"`

	PIN      string `mapstructure:"pin" yaml:"pin,omitempty"`
	UserType string `mapstructure:"user_type" yaml:"user_type" validate:"oneof=user so"`
}

// SoftConfig configures the software token.
type SoftConfig struct {
	Store string `mapstructure:"store" yaml:"store" validate:"oneof=memory file sqlite"`

	// Path is the object directory for "file" and the database for
	// "sqlite".
	Path  string `mapstructure:"path" yaml:"path,omitempty"`
	Label string `mapstructure:"label" yaml:"label" validate:"max=32"`
	PIN   string `mapstructure:"pin" yaml:"pin,omitempty"`
	SOPIN string `mapstructure:"so_pin" yaml:"so_pin,omitempty"`
}

// PoolConfig sizes the session pool used by bench.
type PoolConfig struct {
	Size           int           `mapstructure:"size" yaml:"size" validate:"gte=1,lte=1024"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" yaml:"acquire_timeout" validate:"gte=0"`
	RatePerSecond  float64       `mapstructure:"rate_per_second" yaml:"rate_per_second" validate:"gte=0"`
	Burst          int           `mapstructure:"burst" yaml:"burst" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address" validate:"omitempty,hostname_port"`
}

// Default returns the built-in configuration: an in-memory software token.
func Default() *Config {
	return &Config{
		Token: TokenConfig{
			Type:     TokenSoft,
			UserType: "user",
		},
		Soft: SoftConfig{
			Store: StoreMemory,
			Label: "p11ctl",
		},
		Pool: PoolConfig{
			Size:           4,
			AcquireTimeout: 5 * time.Second,
		},
		Logging: logging.Config{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Address: "127.0.0.1:9464",
		},
	}
}

// New returns a viper instance with the defaults and environment binding
// in place. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return v
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("token.type", c.Token.Type)
	v.SetDefault("token.library", c.Token.Library)
	v.SetDefault("token.slot", c.Token.Slot)
	v.SetDefault("token.token_label", c.Token.TokenLabel)
	v.SetDefault("token.pin", c.Token.PIN)
	v.SetDefault("token.user_type", c.Token.UserType)

	v.SetDefault("soft.store", c.Soft.Store)
	v.SetDefault("soft.path", c.Soft.Path)
	v.SetDefault("soft.label", c.Soft.Label)
	v.SetDefault("soft.pin", c.Soft.PIN)
	v.SetDefault("soft.so_pin", c.Soft.SOPIN)

	v.SetDefault("pool.size", c.Pool.Size)
	v.SetDefault("pool.acquire_timeout", c.Pool.AcquireTimeout)
	v.SetDefault("pool.rate_per_second", c.Pool.RatePerSecond)
	v.SetDefault("pool.burst", c.Pool.Burst)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.file", c.Logging.File)
	v.SetDefault("logging.max_size_mb", c.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", c.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", c.Logging.MaxAgeDays)

	v.SetDefault("metrics.enabled", c.Metrics.Enabled)
	v.SetDefault("metrics.address", c.Metrics.Address)
}

// Load reads path, when set, into v and returns the validated result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile is Load with a fresh viper instance.
func LoadFile(path string) (*Config, error) {
	return Load(New(), path)
}

// Validate checks struct tags, then the rules that span fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Token.Type == TokenPKCS11 && c.Token.Library == "" {
		return fmt.Errorf("%w: token.library is required for a pkcs11 token", ErrInvalid)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("%w: metrics.address is required when metrics are enabled", ErrInvalid)
	}
	if c.Token.Type == TokenSoft && c.Soft.Store != StoreMemory && c.Soft.Path == "" {
		return fmt.Errorf("%w: soft.path is required for the %s store", ErrInvalid, c.Soft.Store)
	}
	return nil
}

// Write stores c as YAML at path, refusing to overwrite an existing file.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// #nosec G304 - path is chosen by the operator
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
