package marketgate

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/password"
	"github.com/MrEthical07/marketgate/permission"
)

const maxEmailLength = 254

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// compareDummy spends the same hashing work as a real comparison so that
// unknown emails are not distinguishable by timing.
func (e *Engine) compareDummy(plain string) {
	e.dummyOnce.Do(func() {
		h, err := e.hasher.Hash(strings.Repeat("x", e.config.Password.MinLength))
		if err == nil {
			e.dummyHash = h
		}
	})
	if e.dummyHash != "" {
		_, _ = e.hasher.Compare(plain, e.dummyHash)
	}
}

// Login checks email and password and issues a credential. Unknown emails
// and wrong passwords both return ErrInvalidLogin; a deactivated account
// with a correct password returns ErrAccountDeactivated.
func (e *Engine) Login(ctx context.Context, email, plain string) (*Session, error) {
	email = normalizeEmail(email)
	actor := audit.Actor{Email: email}

	rec, err := e.provider.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.compareDummy(plain)
			e.metricInc(MetricLoginFailure)
			return nil, e.reject(ctx, ErrInvalidLogin, "login", actor, "", nil)
		}
		e.metricInc(MetricLoginFailure)
		return nil, e.reject(ctx, fmt.Errorf("%w: %v", ErrStoreUnavailable, err), "login", actor, "", nil)
	}
	actor.UserID = rec.ID

	ok, err := e.hasher.Compare(plain, rec.PasswordHash)
	if err != nil {
		e.logger.WarnContext(ctx, "stored password hash unusable", "user_id", rec.ID, "error", err)
	}
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		return nil, e.reject(ctx, ErrInvalidLogin, "login", actor, "", nil)
	}
	if !rec.Active {
		e.metricInc(MetricLoginFailure)
		return nil, e.reject(ctx, ErrAccountDeactivated, "login", actor, "", nil)
	}

	return e.startSession(ctx, rec.Identity, "login")
}

// Register creates a buyer or seller account and issues a credential.
// Admin accounts cannot be self-registered.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	actor := audit.Actor{Email: email}

	if !in.Role.Valid() {
		e.RecordValidationFailure(ctx, Identity{Email: email}, "role", "unknown role")
		return nil, fmt.Errorf("%w: unknown role", ErrInvalidInput)
	}
	if !in.Role.SelfRegistrable() {
		e.record(ctx, audit.Record{
			Level:     audit.LevelCritical,
			EventType: audit.EventSuspiciousActivity,
			Action:    "self-registration with privileged role",
			Actor:     actor,
			Details:   map[string]any{"requestedRole": in.Role.String()},
		})
		return nil, fmt.Errorf("%w: role not allowed", ErrInvalidInput)
	}
	if err := validateEmail(email); err != nil {
		e.RecordValidationFailure(ctx, Identity{Email: email}, "email", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := e.hasher.CheckPolicy(in.Password); err != nil {
		e.RecordValidationFailure(ctx, Identity{Email: email}, "password", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	rec, err := e.provider.CreateIdentity(ctx, CreateIdentityInput{Email: email, PasswordHash: hash, Role: in.Role})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			e.RecordValidationFailure(ctx, Identity{Email: email}, "email", "already registered")
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricRegistration)
	return e.startSession(ctx, rec.Identity, "register")
}

func (e *Engine) startSession(ctx context.Context, identity Identity, action string) (*Session, error) {
	token, claims, err := e.IssueCredential(identity)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.record(ctx, audit.Record{
		Level:     audit.LevelInfo,
		EventType: audit.EventAuthSuccess,
		Action:    action,
		Actor:     actorOf(identity),
		Details:   map[string]any{"role": identity.Role.String(), "credentialId": claims.ID},
		Success:   true,
	})
	return &Session{Token: token, Claims: claims, Identity: identity}, nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return errors.New("email length out of range")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("malformed email")
	}
	return nil
}

// SetAccountActive bans (active=false) or unbans a user. Only admins may
// call it and an admin cannot change their own account.
func (e *Engine) SetAccountActive(ctx context.Context, admin Identity, userID string, active bool) error {
	if err := e.Authorize(ctx, admin, permission.Admin); err != nil {
		return err
	}
	if userID == "" || userID == admin.ID {
		e.RecordValidationFailure(ctx, admin, "userId", "cannot change own or empty account")
		return fmt.Errorf("%w: invalid target account", ErrInvalidInput)
	}

	target, err := e.provider.GetIdentityByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.provider.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	event, action, metric := audit.EventAccountUnbanned, "unban user", MetricAccountUnbanned
	if !active {
		event, action, metric = audit.EventAccountBanned, "ban user", MetricAccountBanned
	}
	e.metricInc(metric)
	e.record(ctx, audit.Record{
		Level:     audit.LevelAudit,
		EventType: event,
		Action:    action,
		Actor:     actorOf(admin),
		Resource:  "user:" + userID,
		Details:   map[string]any{"targetEmail": target.Email, "targetRole": target.Role.String()},
		Success:   true,
	})
	return nil
}

// PasswordPolicy exposes the hasher's length policy check for request validation.
func (e *Engine) PasswordPolicy(plain string) error {
	if err := e.hasher.CheckPolicy(plain); err != nil {
		if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return err
	}
	return nil
}
