package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/marketgate"
)

// Audit sink kinds.
const (
	SinkConsole  = "console"
	SinkFile     = "file"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
	SinkNone     = "none"
)

// Identity store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is the service configuration as read from YAML and the environment.
type Config struct {
	Production bool           `yaml:"production"`
	Server     ServerConfig   `yaml:"server"`
	Log        LogConfig      `yaml:"log"`
	Credential CredentialFile `yaml:"credential"`
	Transport  TransportFile  `yaml:"transport"`
	Session    SessionFile    `yaml:"session"`
	RateLimit  RateLimitFile  `yaml:"rateLimit"`
	Audit      AuditFile      `yaml:"audit"`
	Database   DatabaseConfig `yaml:"database"`
	Redis      RedisConfig    `yaml:"redis"`
	Metrics    MetricsFile    `yaml:"metrics"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CredentialFile struct {
	Secret   string        `yaml:"secret"`
	Lifetime time.Duration `yaml:"lifetime"`
	Issuer   string        `yaml:"issuer"`
}

type TransportFile struct {
	CookieName        string `yaml:"cookieName"`
	SecureCookies     bool   `yaml:"secureCookies"`
	TrustProxyHeaders bool   `yaml:"trustProxyHeaders"`
}

type SessionFile struct {
	TimeoutMinutes int `yaml:"timeoutMinutes"`
}

type RateLimitFile struct {
	Enabled         bool          `yaml:"enabled"`
	MaxRequests     int           `yaml:"maxRequests"`
	Window          time.Duration `yaml:"window"`
	AuthMaxRequests int           `yaml:"authMaxRequests"`
	AuthWindow      time.Duration `yaml:"authWindow"`
	FailClosed      bool          `yaml:"failClosed"`
}

// AuditFile selects and tunes the audit sink. DSN is used by the sqlite and
// postgres sinks, Path by the file sink.
type AuditFile struct {
	Sink             string        `yaml:"sink"`
	Path             string        `yaml:"path"`
	DSN              string        `yaml:"dsn"`
	Async            bool          `yaml:"async"`
	BufferSize       int           `yaml:"bufferSize"`
	DropIfFull       bool          `yaml:"dropIfFull"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"`
	RecordAdmissions bool          `yaml:"recordAdmissions"`
	AlertBus         bool          `yaml:"alertBus"`
}

type DatabaseConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

// RedisConfig enables the shared rate limit store when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MetricsFile controls the counters and their exporters. Prometheus is
// served on /metrics; OTel pushes through the service's metric reader every
// OTelInterval.
type MetricsFile struct {
	Enabled      bool          `yaml:"enabled"`
	Latency      bool          `yaml:"latency"`
	OTel         bool          `yaml:"otel"`
	OTelInterval time.Duration `yaml:"otelInterval"`
}

// Default mirrors marketgate.DefaultConfig plus the service settings.
func Default() Config {
	eng := marketgate.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Credential: CredentialFile{
			Lifetime: eng.Credential.Lifetime,
		},
		Transport: TransportFile{
			CookieName:    eng.Transport.CookieName,
			SecureCookies: eng.Transport.SecureCookies,
		},
		Session: SessionFile{TimeoutMinutes: eng.Session.TimeoutMinutes},
		RateLimit: RateLimitFile{
			Enabled:         eng.RateLimit.Enabled,
			MaxRequests:     eng.RateLimit.MaxRequests,
			Window:          eng.RateLimit.Window,
			AuthMaxRequests: eng.RateLimit.AuthMaxRequests,
			AuthWindow:      eng.RateLimit.AuthWindow,
		},
		Audit: AuditFile{
			Sink:         SinkConsole,
			Path:         "security-audit.log",
			Async:        eng.Audit.Async,
			BufferSize:   eng.Audit.BufferSize,
			WriteTimeout: eng.Audit.WriteTimeout,
		},
		Database: DatabaseConfig{Driver: DriverMemory},
		Metrics:  MetricsFile{Enabled: true, Latency: true, OTelInterval: time.Minute},
	}
}

// Validate checks the service-only settings. Engine settings are checked by
// marketgate.Config.Validate.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	switch c.Audit.Sink {
	case SinkConsole, SinkNone:
	case SinkFile:
		if c.Audit.Path == "" {
			return errors.New("audit.path is required for the file sink")
		}
	case SinkSQLite, SinkPostgres:
		if c.Audit.DSN == "" {
			return fmt.Errorf("audit.dsn is required for the %s sink", c.Audit.Sink)
		}
	default:
		return fmt.Errorf("unknown audit sink %q", c.Audit.Sink)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Metrics.OTel && c.Metrics.OTelInterval <= 0 {
		return errors.New("metrics.otelInterval must be > 0")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	engine := c.Engine()
	return engine.Validate()
}

// Engine converts c into the library configuration.
func (c Config) Engine() marketgate.Config {
	eng := marketgate.DefaultConfig()
	eng.Production = c.Production
	eng.Credential = marketgate.CredentialConfig{
		Secret:   c.Credential.Secret,
		Lifetime: c.Credential.Lifetime,
		Issuer:   c.Credential.Issuer,
	}
	eng.Transport = marketgate.TransportConfig{
		CookieName:        c.Transport.CookieName,
		SecureCookies:     c.Transport.SecureCookies,
		TrustProxyHeaders: c.Transport.TrustProxyHeaders,
	}
	eng.Session.TimeoutMinutes = c.Session.TimeoutMinutes
	eng.RateLimit.Enabled = c.RateLimit.Enabled
	eng.RateLimit.MaxRequests = c.RateLimit.MaxRequests
	eng.RateLimit.Window = c.RateLimit.Window
	eng.RateLimit.AuthMaxRequests = c.RateLimit.AuthMaxRequests
	eng.RateLimit.AuthWindow = c.RateLimit.AuthWindow
	eng.RateLimit.FailClosed = c.RateLimit.FailClosed
	eng.Audit.Async = c.Audit.Async
	eng.Audit.BufferSize = c.Audit.BufferSize
	eng.Audit.DropIfFull = c.Audit.DropIfFull
	eng.Audit.WriteTimeout = c.Audit.WriteTimeout
	eng.Audit.RecordAdmissions = c.Audit.RecordAdmissions
	eng.Metrics.Enabled = c.Metrics.Enabled
	eng.Metrics.EnableLatencyHistograms = c.Metrics.Latency
	return eng
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
