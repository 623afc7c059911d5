package marketgate_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/permission"
)

func TestRegisterThenLogin(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	sess, err := h.engine.Register(ctx, marketgate.RegisterInput{Email: " Seller@Example.com ", Password: "correct horse", Role: permission.Seller})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.Token == "" || sess.Identity.Email != "seller@example.com" || sess.Identity.Role != permission.Seller {
		t.Fatalf("unexpected session: %+v", sess)
	}

	res, err := h.engine.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("registered token rejected: %v", err)
	}
	if res.Identity.ID != sess.Identity.ID {
		t.Fatalf("identity mismatch: %s vs %s", res.Identity.ID, sess.Identity.ID)
	}

	login, err := h.engine.Login(ctx, "SELLER@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.Identity.ID != sess.Identity.ID {
		t.Fatalf("login identity mismatch")
	}
	if h.sink.Count(audit.EventAuthSuccess) != 2 {
		t.Fatalf("expected register and login AUTH_SUCCESS entries, got %+v", h.sink.Entries())
	}
	if got := h.engine.MetricsSnapshot().Counters[marketgate.MetricRegistration]; got != 1 {
		t.Fatalf("registration counter = %d", got)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if _, err := h.engine.Register(ctx, marketgate.RegisterInput{Email: "buyer@example.com", Password: "long enough", Role: permission.Buyer}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPassword := h.engine.Login(ctx, "buyer@example.com", "not the password")
	_, unknownEmail := h.engine.Login(ctx, "nobody@example.com", "long enough")

	for _, err := range []error{wrongPassword, unknownEmail} {
		if !errors.Is(err, marketgate.ErrInvalidLogin) {
			t.Fatalf("expected ErrInvalidLogin, got %v", err)
		}
	}
	if marketgate.PublicMessage(wrongPassword) != marketgate.PublicMessage(unknownEmail) {
		t.Fatal("public messages differ")
	}
	if h.sink.Count(audit.EventAuthFailure) != 2 {
		t.Fatalf("expected two AUTH_FAILURE entries, got %+v", h.sink.Entries())
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sess, err := h.engine.Register(ctx, marketgate.RegisterInput{Email: "s@example.com", Password: "long enough", Role: permission.Seller})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.store.SetActive(ctx, sess.Identity.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := h.engine.Login(ctx, "s@example.com", "long enough"); !errors.Is(err, marketgate.ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
	if _, err := h.engine.Login(ctx, "s@example.com", "wrong password"); !errors.Is(err, marketgate.ErrInvalidLogin) {
		t.Fatalf("wrong password must not reveal account state, got %v", err)
	}
}

func TestRegisterRejections(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.engine.Register(ctx, marketgate.RegisterInput{Email: "root@example.com", Password: "long enough", Role: permission.Admin})
	if !errors.Is(err, marketgate.ErrInvalidInput) {
		t.Fatalf("admin self-registration: expected ErrInvalidInput, got %v", err)
	}
	if h.sink.Count(audit.EventSuspiciousActivity) != 1 {
		t.Fatalf("expected SUSPICIOUS_ACTIVITY entry, got %+v", h.sink.Entries())
	}

	if _, err := h.engine.Register(ctx, marketgate.RegisterInput{Email: "a@example.com", Password: "short", Role: permission.Buyer}); !errors.Is(err, marketgate.ErrInvalidInput) {
		t.Fatalf("short password: expected ErrInvalidInput, got %v", err)
	}
	if _, err := h.engine.Register(ctx, marketgate.RegisterInput{Email: "not-an-email", Password: "long enough", Role: permission.Buyer}); !errors.Is(err, marketgate.ErrInvalidInput) {
		t.Fatalf("bad email: expected ErrInvalidInput, got %v", err)
	}
	if h.sink.Count(audit.EventValidationFailure) != 2 {
		t.Fatalf("expected two VALIDATION_FAILURE entries, got %+v", h.sink.Entries())
	}

	if _, err := h.engine.Register(ctx, marketgate.RegisterInput{Email: "dup@example.com", Password: "long enough", Role: permission.Buyer}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = h.engine.Register(ctx, marketgate.RegisterInput{Email: "DUP@example.com", Password: "long enough", Role: permission.Seller})
	if !errors.Is(err, marketgate.ErrEmailTaken) || marketgate.StatusCode(err) != http.StatusConflict {
		t.Fatalf("expected ErrEmailTaken/409, got %v", err)
	}
}

func TestSetAccountActive(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	admin := h.seed("a1", "admin@example.com", permission.Admin, true)
	seller := h.seed("s1", "seller@example.com", permission.Seller, true)
	tok := h.token(t, seller)

	if err := h.engine.SetAccountActive(ctx, admin, seller.ID, false); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if _, err := h.engine.Authenticate(ctx, tok); !errors.Is(err, marketgate.ErrAccountDeactivated) {
		t.Fatalf("banned seller admitted: %v", err)
	}

	if err := h.engine.SetAccountActive(ctx, admin, seller.ID, true); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if _, err := h.engine.Authenticate(ctx, tok); err != nil {
		t.Fatalf("unbanned seller rejected: %v", err)
	}

	var banned, unbanned *audit.Entry
	for _, e := range h.sink.Entries() {
		e := e
		switch e.EventType {
		case audit.EventAccountBanned:
			banned = &e
		case audit.EventAccountUnbanned:
			unbanned = &e
		}
	}
	if banned == nil || unbanned == nil {
		t.Fatalf("missing ban entries: %+v", h.sink.Entries())
	}
	if banned.Level != audit.LevelAudit || banned.Resource != "user:s1" || banned.UserID != "a1" {
		t.Fatalf("unexpected ban entry: %+v", banned)
	}
}

func TestSetAccountActiveRejections(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	admin := h.seed("a1", "admin@example.com", permission.Admin, true)
	seller := h.seed("s1", "seller@example.com", permission.Seller, true)

	if err := h.engine.SetAccountActive(ctx, seller, admin.ID, false); !errors.Is(err, marketgate.ErrInsufficientRole) {
		t.Fatalf("seller banning: expected ErrInsufficientRole, got %v", err)
	}
	if err := h.engine.SetAccountActive(ctx, admin, admin.ID, false); !errors.Is(err, marketgate.ErrInvalidInput) {
		t.Fatalf("self ban: expected ErrInvalidInput, got %v", err)
	}
	if err := h.engine.SetAccountActive(ctx, admin, "ghost", false); !errors.Is(err, marketgate.ErrResourceNotFound) {
		t.Fatalf("unknown target: expected ErrResourceNotFound, got %v", err)
	}
	rec, _ := h.store.GetIdentityByID(ctx, admin.ID)
	if !rec.Active {
		t.Fatal("admin deactivated")
	}
}
