package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/middleware"
	"github.com/MrEthical07/marketgate/permission"
)

type response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type sessionResponse struct {
	Token     string              `json:"token"`
	ExpiresAt int64               `json:"expiresAt"`
	User      marketgate.Identity `json:"user"`
}

func (a *API) ok(w http.ResponseWriter, status int, data any) {
	middleware.WriteJSON(w, status, response{Success: true, Data: data})
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if marketgate.StatusCode(err) >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	middleware.WriteError(w, err)
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.engine.RecordValidationFailure(r.Context(), marketgate.Identity{}, "body", err.Error())
		return fmt.Errorf("%w: %v", marketgate.ErrInvalidInput, err)
	}
	return nil
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	for _, p := range a.ready {
		if err := p.Ping(r.Context()); err != nil {
			a.fail(w, r, fmt.Errorf("%w: %v", marketgate.ErrStoreUnavailable, err))
			return
		}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	// An unknown role string is left as the zero Role, which Register rejects.
	role, _ := permission.Parse(req.Role)

	sess, err := a.engine.Register(r.Context(), marketgate.RegisterInput{Email: req.Email, Password: req.Password, Role: role})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.SetCredentialCookie(w, a.engine, sess.Token)
	a.ok(w, http.StatusCreated, newSessionResponse(sess))
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	sess, err := a.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.SetCredentialCookie(w, a.engine, sess.Token)
	a.ok(w, http.StatusOK, newSessionResponse(sess))
}

func (a *API) logout(w http.ResponseWriter, _ *http.Request) {
	middleware.ClearCredentialCookie(w, a.engine)
	a.ok(w, http.StatusOK, nil)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	a.ok(w, http.StatusOK, res.Identity)
}

func (a *API) sellerProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	owner, err := a.products.ProductOwnerID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.ok(w, http.StatusOK, map[string]string{"productId": id, "sellerId": owner})
}

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	rec, err := a.users.GetIdentityByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		if errors.Is(err, marketgate.ErrUserNotFound) {
			err = marketgate.ErrResourceNotFound
		} else {
			err = fmt.Errorf("%w: %v", marketgate.ErrStoreUnavailable, err)
		}
		a.fail(w, r, err)
		return
	}
	a.ok(w, http.StatusOK, rec.Identity)
}

func (a *API) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, _ := middleware.AuthResultFromContext(r.Context())
		target := chi.URLParam(r, "userID")

		if err := a.engine.SetAccountActive(r.Context(), res.Identity, target, active); err != nil {
			a.fail(w, r, err)
			return
		}
		a.ok(w, http.StatusOK, map[string]any{"userId": target, "active": active})
	}
}

func (a *API) securityLogs(w http.ResponseWriter, r *http.Request) {
	hours := 0
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.fail(w, r, fmt.Errorf("%w: hours must be a positive integer", marketgate.ErrInvalidInput))
			return
		}
		hours = n
	}

	entries, err := a.engine.QueryAudit(r.Context(), hours)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.ok(w, http.StatusOK, map[string]any{"count": len(entries), "entries": entries})
}

func newSessionResponse(s *marketgate.Session) sessionResponse {
	return sessionResponse{
		Token:     s.Token,
		ExpiresAt: s.Claims.ExpiresAt.Unix(),
		User:      s.Identity,
	}
}
