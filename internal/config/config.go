// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Tenant      TenantConfig   `mapstructure:"tenant"`
	RateLimit   RateLimitMap   `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TenantConfig controls public identifier derivation and directory caching.
type TenantConfig struct {
	PublicIDSalt  string        `mapstructure:"public_id_salt"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitRule is one named limiter's window configuration.
type RateLimitRule struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

// RateLimitMap maps limiter names (auth, registration, api, public) to rules.
type RateLimitMap map[string]RateLimitRule

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.graceful_shutdown_timeout", "30s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.max_open_conns", 30)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("tenant.cache_ttl", "5m")
	v.SetDefault("tenant.sweep_interval", "5m")

	v.SetDefault("rate_limit.auth.max", 10)
	v.SetDefault("rate_limit.auth.window", "1m")
	v.SetDefault("rate_limit.registration.max", 5)
	v.SetDefault("rate_limit.registration.window", "10m")
	v.SetDefault("rate_limit.api.max", 300)
	v.SetDefault("rate_limit.api.window", "1m")
	v.SetDefault("rate_limit.public.max", 60)
	v.SetDefault("rate_limit.public.window", "1m")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if strings.TrimSpace(cfg.Tenant.PublicIDSalt) == "" {
		return fmt.Errorf("tenant.public_id_salt is required")
	}
	if cfg.Tenant.CacheTTL <= 0 {
		return fmt.Errorf("tenant.cache_ttl must be positive")
	}
	for name, rule := range cfg.RateLimit {
		if rule.Max <= 0 {
			return fmt.Errorf("rate_limit.%s.max must be greater than 0", name)
		}
		if rule.Window <= 0 {
			return fmt.Errorf("rate_limit.%s.window must be positive", name)
		}
	}
	return nil
}
