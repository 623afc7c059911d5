package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/marketgate/permission"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultLifetime is the credential lifetime used when Config.Lifetime is zero.
	DefaultLifetime = 7 * 24 * time.Hour
	// MinSecretLength is the shortest accepted shared secret, in bytes.
	MinSecretLength = 32
)

var (
	// ErrInvalidToken reports a credential whose format, algorithm, signature
	// or claim set is not acceptable.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken reports a correctly signed credential past its expiry.
	ErrExpiredToken = errors.New("token expired")
)

// Config configures a Manager.
type Config struct {
	// Secret is the shared HS256 key.
	Secret []byte
	// Lifetime is the hard expiry applied at issuance. Zero means DefaultLifetime.
	Lifetime time.Duration
	// Issuer, when set, is stamped into issued credentials and required on verification.
	Issuer string
	// Now overrides the wall clock. Nil means time.Now.
	Now func() time.Time
}

// Claims is the decoded payload of a session credential.
type Claims struct {
	ID        string
	SubjectID string
	Email     string
	Role      permission.Role
	// IssuedAt is zero when the credential carries no iat claim.
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type wireClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and verifies credentials with a single shared secret.
// It is safe for concurrent use.
type Manager struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
	parser   *jwt.Parser
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.Lifetime < 0 {
		return nil, errors.New("invalid lifetime configuration")
	}
	if cfg.Lifetime == 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	m := &Manager{
		secret:   secret,
		lifetime: cfg.Lifetime,
		issuer:   strings.TrimSpace(cfg.Issuer),
		now:      cfg.Now,
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	m.parser = jwt.NewParser(opts...)

	return m, nil
}

// Lifetime returns the hard expiry applied to issued credentials.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Issue signs a credential for the given subject. The returned Claims mirror
// exactly what Verify will decode from the token.
func (m *Manager) Issue(subjectID, email string, role permission.Role) (string, Claims, error) {
	if strings.TrimSpace(subjectID) == "" {
		return "", Claims{}, errors.New("subject id is required")
	}
	if !role.Valid() {
		return "", Claims{}, permission.ErrUnknownRole
	}

	// NumericDate has second precision; truncating keeps Issue and Verify in agreement.
	now := m.now().Truncate(time.Second)
	claims := Claims{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Email:     email,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.lifetime),
	}

	wire := wireClaims{
		Email: email,
		Role:  role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   subjectID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(m.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Verify checks the signature, algorithm, expiry and claim set of token.
// Failures wrap ErrInvalidToken or ErrExpiredToken and never return claims.
func (m *Manager) Verify(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	var wire wireClaims
	parsed, err := m.parser.ParseWithClaims(token, &wire, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	if wire.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role, err := permission.Parse(wire.Role)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := Claims{
		ID:        wire.ID,
		SubjectID: wire.Subject,
		Email:     wire.Email,
		Role:      role,
		ExpiresAt: wire.ExpiresAt.Time,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	return claims, nil
}
