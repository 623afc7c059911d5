package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MARKETGATE_"

// Loader reads Default, then an optional YAML file, then environment
// overrides, in that order.
type Loader struct {
	useDotEnv bool
	dotEnv    []string
	lookupEnv func(string) (string, bool)
}

// NewLoader returns a loader that reads .env from the working directory.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from .env files before reading the
// environment. With no files given, ".env" is used.
func (l *Loader) WithDotEnv(enabled bool, files ...string) *Loader {
	l.useDotEnv = enabled
	l.dotEnv = files
	return l
}

// WithLookupEnv replaces os.LookupEnv (useful for tests).
func (l *Loader) WithLookupEnv(fn func(string) (string, bool)) *Loader {
	if fn != nil {
		l.lookupEnv = fn
	}
	return l
}

// Load builds and validates the configuration. An empty path skips the
// YAML file.
func (l *Loader) Load(path string) (Config, error) {
	cfg := Default()

	if l.useDotEnv {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(l.dotEnv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := l.applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := l.lookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var firstErr error
	boolean := func(name string, dst *bool) {
		if v, ok := l.lookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := l.lookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	boolean("PRODUCTION", &cfg.Production)
	str("ADDR", &cfg.Server.Addr)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("SECRET", &cfg.Credential.Secret)
	str("ISSUER", &cfg.Credential.Issuer)
	str("COOKIE_NAME", &cfg.Transport.CookieName)
	boolean("SECURE_COOKIES", &cfg.Transport.SecureCookies)
	boolean("TRUST_PROXY_HEADERS", &cfg.Transport.TrustProxyHeaders)
	integer("SESSION_TIMEOUT_MINUTES", &cfg.Session.TimeoutMinutes)
	boolean("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	boolean("RATE_LIMIT_FAIL_CLOSED", &cfg.RateLimit.FailClosed)
	str("AUDIT_SINK", &cfg.Audit.Sink)
	str("AUDIT_PATH", &cfg.Audit.Path)
	str("AUDIT_DSN", &cfg.Audit.DSN)
	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_DSN", &cfg.Database.DSN)
	boolean("DATABASE_MIGRATE", &cfg.Database.Migrate)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	integer("REDIS_DB", &cfg.Redis.DB)
	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	boolean("METRICS_OTEL", &cfg.Metrics.OTel)

	return firstErr
}
