package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/permission"
)

var userColumns = []string{"id", "email", "role", "active", "password_hash", "created_at"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return New(db), mock
}

func TestGetIdentityByID(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("select id, email, role, active, password_hash, created_at from users where id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "s@example.com", "seller", false, "hash", created))

	rec, err := s.GetIdentityByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetIdentityByID: %v", err)
	}
	if rec.Role != permission.Seller || rec.Active || rec.PasswordHash != "hash" || !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestGetIdentityNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("from users where email").WithArgs("nobody@example.com").WillReturnError(sql.ErrNoRows)

	_, err := s.GetIdentityByEmail(context.Background(), "Nobody@Example.com")
	if !errors.Is(err, marketgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetIdentityUnknownRoleIsStoreError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("from users where id").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "x@example.com", "superuser", true, "h", time.Now()))

	_, err := s.GetIdentityByID(context.Background(), "u1")
	if err == nil || errors.Is(err, marketgate.ErrUserNotFound) {
		t.Fatalf("expected a non not-found error, got %v", err)
	}
	if !errors.Is(err, permission.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole in chain, got %v", err)
	}
}

func TestGetIdentityBackendError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("from users where id").WithArgs("u1").WillReturnError(errors.New("conn reset"))

	_, err := s.GetIdentityByID(context.Background(), "u1")
	if err == nil || errors.Is(err, marketgate.ErrUserNotFound) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestCreateIdentity(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "buyer@example.com", "hash", "buyer").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	rec, err := s.CreateIdentity(context.Background(), marketgate.CreateIdentityInput{Email: "Buyer@example.com", PasswordHash: "hash", Role: permission.Buyer})
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if rec.ID == "" || !rec.Active || rec.Email != "buyer@example.com" || !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCreateIdentityDuplicateEmail(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "dup@example.com", "hash", "seller").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := s.CreateIdentity(context.Background(), marketgate.CreateIdentityInput{Email: "dup@example.com", PasswordHash: "hash", Role: permission.Seller})
	if !errors.Is(err, marketgate.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("update users set active").WithArgs("u1", false).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update users set active").WithArgs("ghost", true).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.SetActive(context.Background(), "u1", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := s.SetActive(context.Background(), "ghost", true); !errors.Is(err, marketgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestProductOwnerID(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("select seller_id from products").WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"seller_id"}).AddRow("s1"))
	mock.ExpectQuery("select seller_id from products").WithArgs("p2").WillReturnError(sql.ErrNoRows)

	owner, err := s.ProductOwnerID(context.Background(), "p1")
	if err != nil || owner != "s1" {
		t.Fatalf("owner = %q, %v", owner, err)
	}
	if _, err := s.ProductOwnerID(context.Background(), "p2"); !errors.Is(err, marketgate.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestMigrate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("create table if not exists users").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
}
