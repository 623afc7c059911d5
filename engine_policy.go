package marketgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/permission"
)

// Authorize admits identity when its live role is one of allowed.
func (e *Engine) Authorize(ctx context.Context, identity Identity, allowed ...permission.Role) error {
	if identity.Role.In(allowed...) {
		return nil
	}
	return e.reject(ctx, ErrInsufficientRole, "authorize role", actorOf(identity), "", map[string]any{
		"role":         identity.Role.String(),
		"allowedRoles": permission.Join(allowed),
	})
}

// AuthorizeOwnership admits admins unconditionally and everyone else only
// when identity.ID equals ownerID. resource labels the audit entry.
func (e *Engine) AuthorizeOwnership(ctx context.Context, identity Identity, resource, ownerID string) error {
	if identity.Role == permission.Admin {
		return nil
	}
	if ownerID != "" && identity.ID == ownerID {
		return nil
	}
	return e.reject(ctx, ErrNotOwner, "authorize ownership", actorOf(identity), resource, map[string]any{
		"role":    identity.Role.String(),
		"ownerId": ownerID,
	})
}

// AuthorizeProductOwnership looks up the seller owning productID and applies
// AuthorizeOwnership. Unknown products yield ErrResourceNotFound, audited
// like a denied ownership check.
func (e *Engine) AuthorizeProductOwnership(ctx context.Context, identity Identity, productID string) error {
	if e.owners == nil {
		return fmt.Errorf("%w: no product owner lookup", ErrEngineMisconfigured)
	}
	resource := "product:" + productID

	ownerID, err := e.owners.ProductOwnerID(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			// Unknown product ids leave a trail even though the answer is 404.
			return e.rejectAs(ctx, audit.EventUnauthorizedAccess, ErrResourceNotFound, "authorize ownership", actorOf(identity), resource, map[string]any{
				"role": identity.Role.String(),
			})
		}
		wrapped := fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		e.record(ctx, audit.Record{
			Level:     audit.LevelWarning,
			EventType: audit.EventUnauthorizedAccess,
			Action:    "authorize ownership",
			Actor:     actorOf(identity),
			Resource:  resource,
			Details:   map[string]any{"reason": wrapped.Error()},
		})
		e.metricInc(MetricStoreUnavailable)
		return wrapped
	}
	return e.AuthorizeOwnership(ctx, identity, resource, ownerID)
}
