package marketgate

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Credential.Secret = strings.Repeat("k", 32)
	return cfg
}

func TestDefaultConfigNeedsOnlySecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without secret")
	}
	cfg = validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if cfg.Transport.CookieName != "auth_token" || cfg.Session.Timeout() != 30*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RateLimit.MaxRequests != 100 || cfg.RateLimit.Window != 15*time.Minute {
		t.Fatalf("unexpected rate defaults: %+v", cfg.RateLimit)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.Credential.Secret = "short" }},
		{"zero lifetime", func(c *Config) { c.Credential.Lifetime = 0 }},
		{"empty cookie", func(c *Config) { c.Transport.CookieName = " " }},
		{"insecure production", func(c *Config) { c.Production = true; c.Transport.SecureCookies = false }},
		{"negative timeout", func(c *Config) { c.Session.TimeoutMinutes = -1 }},
		{"timeout beyond lifetime", func(c *Config) { c.Credential.Lifetime = time.Minute; c.Session.TimeoutMinutes = 5 }},
		{"zero rate", func(c *Config) { c.RateLimit.MaxRequests = 0 }},
		{"zero auth window", func(c *Config) { c.RateLimit.AuthWindow = 0 }},
		{"negative buffer", func(c *Config) { c.Audit.BufferSize = -1 }},
		{"password policy", func(c *Config) { c.Password.MaxLength = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg := validConfig()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.MaxRequests = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled limiter should skip rate checks: %v", err)
	}
}
