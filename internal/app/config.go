package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the credential service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Identity IdentityConfig `mapstructure:"identity"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int    `mapstructure:"port"`
	LogLevel           string `mapstructure:"log_level"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
	MetricsEnabled     bool   `mapstructure:"metrics_enabled"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters. SSLMode is only
// meaningful for postgres.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// IdentityConfig configures the external identity provider.
type IdentityConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	ServiceKey  string        `mapstructure:"service_key"`
	AnonKey     string        `mapstructure:"anon_key"`
	LoginDomain string        `mapstructure:"login_domain"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// AuditConfig controls the audit trail retention sweep.
type AuditConfig struct {
	RetentionDays int    `mapstructure:"retention_days"`
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CREDSVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate rejects configurations that cannot possibly serve requests.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Identity.BaseURL) == "" {
		return errors.New("config: identity.base_url is required")
	}
	if strings.TrimSpace(c.Identity.ServiceKey) == "" {
		return errors.New("config: identity.service_key is required")
	}
	if strings.TrimSpace(c.Identity.LoginDomain) == "" {
		return errors.New("config: identity.login_domain is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit_per_minute", 100)
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/credsvc.sqlite")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("identity.login_domain", "portal.internal")
	v.SetDefault("identity.timeout", "10s")

	v.SetDefault("audit.retention_days", 90)
	v.SetDefault("audit.sweep_schedule", "@daily")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
