package marketgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/jwt"
)

// IssueCredential signs a credential for identity.
func (e *Engine) IssueCredential(identity Identity) (string, jwt.Claims, error) {
	return e.codec.Issue(identity.ID, identity.Email, identity.Role)
}

// VerifyCredential checks token without consulting the identity store.
// Errors match ErrInvalidCredential or ErrExpiredCredential.
func (e *Engine) VerifyCredential(token string) (jwt.Claims, error) {
	claims, err := e.codec.Verify(token)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrExpiredToken):
		return jwt.Claims{}, ErrExpiredCredential
	default:
		return jwt.Claims{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
}

// Resolve loads the live identity for subjectID. It fails closed: a missing
// record is ErrUserNotFound, an inactive one ErrAccountDeactivated and any
// store failure ErrStoreUnavailable.
func (e *Engine) Resolve(ctx context.Context, subjectID string) (Identity, error) {
	rec, err := e.provider.GetIdentityByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Identity{}, ErrUserNotFound
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if rec.ID == "" {
		return Identity{}, ErrUserNotFound
	}
	if !rec.Active {
		return Identity{}, ErrAccountDeactivated
	}
	return rec.Identity, nil
}

// Authenticate runs verify and resolve for a candidate credential taken from
// a request. An empty token is ErrMissingCredential. Every failure is
// audited before it is returned.
func (e *Engine) Authenticate(ctx context.Context, token string) (*AuthResult, error) {
	start := e.now()
	defer func() {
		e.metrics.Observe(MetricAuthenticateLatency, e.since(start))
	}()

	if token == "" {
		e.metricInc(MetricAuthFailure)
		return nil, e.reject(ctx, ErrMissingCredential, "authenticate", audit.Actor{}, "", nil)
	}

	claims, err := e.VerifyCredential(token)
	if err != nil {
		e.metricInc(MetricAuthFailure)
		return nil, e.reject(ctx, err, "authenticate", audit.Actor{}, "", nil)
	}

	identity, err := e.Resolve(ctx, claims.SubjectID)
	if err != nil {
		e.metricInc(MetricAuthFailure)
		actor := audit.Actor{UserID: claims.SubjectID, Email: claims.Email}
		return nil, e.reject(ctx, err, "authenticate", actor, "", map[string]any{"credentialRole": claims.Role.String()})
	}

	e.metricInc(MetricAuthSuccess)
	if e.config.Audit.RecordAdmissions {
		e.record(ctx, audit.Record{
			Level:     audit.LevelInfo,
			EventType: audit.EventAuthSuccess,
			Action:    "authenticate",
			Actor:     actorOf(identity),
			Success:   true,
		})
	}
	return &AuthResult{Claims: claims, Identity: identity}, nil
}
