package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const phcAlgorithm = "argon2id"

var (
	// ErrTooShort is returned for passwords below Params.MinLength bytes.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned for passwords above Params.MaxLength bytes.
	ErrTooLong = errors.New("password too long")
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Params are the Argon2id cost parameters and the length policy.
type Params struct {
	MemoryKB   uint32
	Iterations uint32
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
	MinLength  int
	MaxLength  int
}

// DefaultParams follows the OWASP Argon2id baseline.
func DefaultParams() Params {
	return Params{
		MemoryKB:   64 * 1024,
		Iterations: 3,
		Threads:    2,
		SaltLength: 16,
		KeyLength:  32,
		MinLength:  8,
		MaxLength:  128,
	}
}

// Hasher produces and checks Argon2id password hashes.
type Hasher struct {
	params Params
}

// New validates p and returns a Hasher.
func New(p Params) (*Hasher, error) {
	switch {
	case p.MemoryKB < 8*1024:
		return nil, errors.New("argon2 memory must be at least 8 MiB")
	case p.Iterations < 1:
		return nil, errors.New("argon2 iterations must be positive")
	case p.Threads < 1:
		return nil, errors.New("argon2 threads must be positive")
	case p.SaltLength < 16:
		return nil, errors.New("argon2 salt must be at least 16 bytes")
	case p.KeyLength < 16:
		return nil, errors.New("argon2 key must be at least 16 bytes")
	case p.MinLength < 1 || p.MaxLength < p.MinLength:
		return nil, errors.New("invalid password length policy")
	}
	return &Hasher{params: p}, nil
}

// CheckPolicy applies the length policy without hashing.
func (h *Hasher) CheckPolicy(plain string) error {
	if len(plain) < h.params.MinLength {
		return ErrTooShort
	}
	if len(plain) > h.params.MaxLength {
		return ErrTooLong
	}
	return nil
}

// Hash returns the PHC encoding of plain under fresh random salt.
func (h *Hasher) Hash(plain string) (string, error) {
	if err := h.CheckPolicy(plain); err != nil {
		return "", err
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, h.params.Iterations, h.params.MemoryKB, h.params.Threads, h.params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version,
		h.params.MemoryKB, h.params.Iterations, h.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Compare reports whether plain matches encoded. It returns an error only
// when encoded is not a usable Argon2id hash. Over-long input never matches,
// which bounds the work an attacker can force per attempt.
func (h *Hasher) Compare(plain, encoded string) (bool, error) {
	stored, err := decode(encoded)
	if err != nil {
		return false, err
	}
	if len(plain) > h.params.MaxLength {
		return false, nil
	}

	key := argon2.IDKey([]byte(plain), stored.salt, stored.iterations, stored.memoryKB, stored.threads, uint32(len(stored.key)))
	return subtle.ConstantTimeCompare(key, stored.key) == 1, nil
}

// Outdated reports whether encoded was produced with weaker parameters than
// the Hasher's, so the caller can rehash after a successful login.
func (h *Hasher) Outdated(encoded string) (bool, error) {
	stored, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return stored.memoryKB < h.params.MemoryKB ||
		stored.iterations < h.params.Iterations ||
		stored.threads < h.params.Threads ||
		uint32(len(stored.key)) != h.params.KeyLength, nil
}

type storedHash struct {
	memoryKB   uint32
	iterations uint32
	threads    uint8
	salt       []byte
	key        []byte
}

func decode(encoded string) (storedHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != phcAlgorithm {
		return storedHash{}, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return storedHash{}, fmt.Errorf("%w: unsupported version", ErrMalformedHash)
	}

	var s storedHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &s.memoryKB, &s.iterations, &s.threads); err != nil {
		return storedHash{}, fmt.Errorf("%w: bad parameters", ErrMalformedHash)
	}
	if s.memoryKB < 8*1024 || s.iterations < 1 || s.threads < 1 {
		return storedHash{}, fmt.Errorf("%w: weak parameters", ErrMalformedHash)
	}

	var err error
	if s.salt, err = decodeSegment(fields[4]); err != nil || len(s.salt) < 16 {
		return storedHash{}, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if s.key, err = decodeSegment(fields[5]); err != nil || len(s.key) < 16 {
		return storedHash{}, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return s, nil
}

// decodeSegment accepts both padded and unpadded base64.
func decodeSegment(seg string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(seg, "="))
}
