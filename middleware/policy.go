package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/permission"
)

// errNotAuthenticated is written when a policy middleware runs without
// Authenticate in front of it. That is a wiring bug, so it maps to 500.
var errNotAuthenticated = fmt.Errorf("%w: policy middleware without Authenticate", marketgate.ErrEngineMisconfigured)

// OwnerFunc resolves the resource label and owner id targeted by r.
type OwnerFunc func(r *http.Request) (resource, ownerID string, err error)

// ParamFunc extracts a single path parameter, such as a product id, from r.
type ParamFunc func(r *http.Request) string

// RequireRoles admits the authenticated identity when its live role is one
// of roles.
func RequireRoles(engine *marketgate.Engine, roles ...permission.Role) func(http.Handler) http.Handler {
	allowed := append([]permission.Role(nil), roles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				WriteError(w, errNotAuthenticated)
				return
			}
			if err := engine.Authorize(r.Context(), res.Identity, allowed...); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnership admits admins and the owner reported by ownerFn.
func RequireOwnership(engine *marketgate.Engine, ownerFn OwnerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				WriteError(w, errNotAuthenticated)
				return
			}
			resource, ownerID, err := ownerFn(r)
			if err != nil {
				WriteError(w, err)
				return
			}
			if err := engine.AuthorizeOwnership(r.Context(), res.Identity, resource, ownerID); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireProductOwnership admits admins and the seller owning the product
// whose id productID extracts from the request.
func RequireProductOwnership(engine *marketgate.Engine, productID ParamFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				WriteError(w, errNotAuthenticated)
				return
			}
			if err := engine.AuthorizeProductOwnership(r.Context(), res.Identity, productID(r)); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFreshSession rejects credentials older than timeout. A
// non-positive timeout uses the engine's configured session timeout.
func RequireFreshSession(engine *marketgate.Engine, timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				WriteError(w, errNotAuthenticated)
				return
			}
			if err := engine.CheckFreshness(r.Context(), res.Claims, timeout); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
