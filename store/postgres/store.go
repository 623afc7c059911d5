package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/permission"
)

const pgErrUniqueViolation = "23505"

// Schema creates the tables the store reads. Products are owned by the
// catalog service; only the owner column is consulted here.
const Schema = `
create table if not exists users (
	id            text primary key,
	email         text not null unique,
	password_hash text not null,
	role          text not null check (role in ('admin', 'seller', 'buyer')),
	active        boolean not null default true,
	created_at    timestamptz not null default now()
);
create table if not exists products (
	id        text primary key,
	seller_id text not null references users(id)
);
`

var (
	_ marketgate.IdentityProvider   = (*Store)(nil)
	_ marketgate.ProductOwnerLookup = (*Store)(nil)
)

// Store reads identities and product owners from PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects with the pgx driver and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// Ping checks connectivity for the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectUser = `select id, email, role, active, password_hash, created_at from users`

// GetIdentityByID implements marketgate.IdentityProvider.
func (s *Store) GetIdentityByID(ctx context.Context, id string) (marketgate.IdentityRecord, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectUser+` where id = $1`, id))
}

// GetIdentityByEmail implements marketgate.IdentityProvider.
func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (marketgate.IdentityRecord, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectUser+` where email = $1`, strings.ToLower(email)))
}

func (s *Store) scanOne(row *sql.Row) (marketgate.IdentityRecord, error) {
	var (
		rec  marketgate.IdentityRecord
		role string
	)
	if err := row.Scan(&rec.ID, &rec.Email, &role, &rec.Active, &rec.PasswordHash, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return marketgate.IdentityRecord{}, marketgate.ErrUserNotFound
		}
		return marketgate.IdentityRecord{}, err
	}
	parsed, err := permission.Parse(role)
	if err != nil {
		return marketgate.IdentityRecord{}, fmt.Errorf("user %s has role %q: %w", rec.ID, role, err)
	}
	rec.Role = parsed
	return rec, nil
}

// CreateIdentity implements marketgate.IdentityProvider.
func (s *Store) CreateIdentity(ctx context.Context, in marketgate.CreateIdentityInput) (marketgate.IdentityRecord, error) {
	if !in.Role.Valid() {
		return marketgate.IdentityRecord{}, fmt.Errorf("%w: %v", marketgate.ErrInvalidInput, permission.ErrUnknownRole)
	}

	rec := marketgate.IdentityRecord{
		Identity: marketgate.Identity{
			ID:     uuid.NewString(),
			Email:  strings.ToLower(in.Email),
			Role:   in.Role,
			Active: true,
		},
		PasswordHash: in.PasswordHash,
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, email, password_hash, role, active)
		values ($1, $2, $3, $4, true)
		returning created_at
	`, rec.ID, rec.Email, rec.PasswordHash, rec.Role.String())
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return marketgate.IdentityRecord{}, marketgate.ErrEmailTaken
		}
		return marketgate.IdentityRecord{}, err
	}
	return rec, nil
}

// SetActive implements marketgate.IdentityProvider.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `update users set active = $2 where id = $1`, id, active)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return marketgate.ErrUserNotFound
	}
	return nil
}

// ProductOwnerID implements marketgate.ProductOwnerLookup.
func (s *Store) ProductOwnerID(ctx context.Context, productID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `select seller_id from products where id = $1`, productID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", marketgate.ErrResourceNotFound
		}
		return "", err
	}
	return owner, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
