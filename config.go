package marketgate

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/marketgate/jwt"
	"github.com/MrEthical07/marketgate/password"
)

// DefaultCookieName is the cookie carrying the session credential.
const DefaultCookieName = "auth_token"

// Config is the complete engine configuration. It is read once at Build.
type Config struct {
	Credential CredentialConfig
	Transport  TransportConfig
	Session    SessionConfig
	RateLimit  RateLimitConfig
	Audit      AuditConfig
	Password   password.Params
	Metrics    MetricsConfig
	// Production tightens validation: secure cookies become mandatory.
	Production bool
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig configures the session credential codec.
type CredentialConfig struct {
	// Secret is the single shared HS256 signing secret.
	Secret string
	// Lifetime is the hard expiry of issued credentials.
	Lifetime time.Duration
	Issuer   string
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig configures how credentials travel over HTTP.
type TransportConfig struct {
	CookieName    string
	SecureCookies bool
	// TrustProxyHeaders makes the client IP come from X-Forwarded-For /
	// X-Real-IP. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures the session timeout guard.
type SessionConfig struct {
	// TimeoutMinutes is the freshness bound applied by routes that opt in
	// without their own timeout. Zero disables the default.
	TimeoutMinutes int
}

// Timeout returns TimeoutMinutes as a duration.
func (c SessionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures the fixed-window limiter.
type RateLimitConfig struct {
	Enabled bool
	// MaxRequests per Window for general API routes.
	MaxRequests int
	Window      time.Duration
	// AuthMaxRequests per AuthWindow for login and registration.
	AuthMaxRequests int
	AuthWindow      time.Duration
	RedisPrefix     string
	// FailClosed rejects requests when the counter store is unreachable.
	// The default lets traffic through and reports the failure.
	FailClosed bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig configures the security audit log.
type AuditConfig struct {
	Async        bool
	BufferSize   int
	DropIfFull   bool
	WriteTimeout time.Duration
	// RecordAdmissions writes an AUTH_SUCCESS entry for every authenticated
	// request, not only for login and registration.
	RecordAdmissions  bool
	DefaultQueryHours int
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration with every default filled in except
// the signing secret.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Credential: CredentialConfig{
			Lifetime: jwt.DefaultLifetime,
		},
		Transport: TransportConfig{
			CookieName:    DefaultCookieName,
			SecureCookies: true,
		},
		Session: SessionConfig{
			TimeoutMinutes: 30,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			MaxRequests:     100,
			Window:          15 * time.Minute,
			AuthMaxRequests: 10,
			AuthWindow:      15 * time.Minute,
		},
		Audit: AuditConfig{
			Async:             true,
			BufferSize:        1024,
			WriteTimeout:      5 * time.Second,
			DefaultQueryHours: 24,
		},
		Password: password.DefaultParams(),
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	if len(c.Credential.Secret) < jwt.MinSecretLength {
		return errors.New("Credential Secret must be at least 32 bytes")
	}
	if c.Credential.Lifetime <= 0 {
		return errors.New("Credential Lifetime must be > 0")
	}

	if strings.TrimSpace(c.Transport.CookieName) == "" {
		return errors.New("Transport CookieName must not be empty")
	}
	if c.Production && !c.Transport.SecureCookies {
		return errors.New("Transport SecureCookies is required in production")
	}

	if c.Session.TimeoutMinutes < 0 {
		return errors.New("Session TimeoutMinutes must be >= 0")
	}
	if c.Session.Timeout() > c.Credential.Lifetime {
		return errors.New("Session TimeoutMinutes must not exceed Credential Lifetime")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0 {
			return errors.New("RateLimit MaxRequests and Window must be > 0")
		}
		if c.RateLimit.AuthMaxRequests <= 0 || c.RateLimit.AuthWindow <= 0 {
			return errors.New("RateLimit AuthMaxRequests and AuthWindow must be > 0")
		}
	}

	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}
	if c.Audit.WriteTimeout < 0 {
		return errors.New("Audit WriteTimeout must be >= 0")
	}
	if c.Audit.DefaultQueryHours < 0 {
		return errors.New("Audit DefaultQueryHours must be >= 0")
	}

	if c.Password.MinLength < 1 || c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password length policy is inconsistent")
	}

	return nil
}
