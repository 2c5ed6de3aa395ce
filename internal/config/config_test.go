package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Environment: "development",
		Server:      ServerConfig{Host: "localhost", Port: 8080},
		Database:    DatabaseConfig{DSN: "postgres://localhost/fisiohub"},
		Tenant: TenantConfig{
			PublicIDSalt: "test-salt",
			CacheTTL:     5 * time.Minute,
		},
		RateLimit: RateLimitMap{
			"api": {Max: 300, Window: time.Minute},
		},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRequiresDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database.DSN = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing dsn")
	}
}

func TestValidateRequiresSalt(t *testing.T) {
	cfg := validConfig()
	cfg.Tenant.PublicIDSalt = "   "
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "public_id_salt") {
		t.Fatalf("expected salt error, got %v", err)
	}
}

func TestValidateRejectsZeroWindow(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit["api"] = RateLimitRule{Max: 10, Window: 0}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for zero rate limit window")
	}
}

func TestIsProduction(t *testing.T) {
	cfg := validConfig()
	if cfg.IsProduction() {
		t.Fatal("development config reported as production")
	}
	cfg.Environment = "Production"
	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
}
