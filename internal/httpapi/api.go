package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/middleware"
	"github.com/MrEthical07/marketgate/permission"
)

const maxBodyBytes = 1 << 20

// Pinger is a readiness dependency such as a database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// API holds the handlers and their dependencies.
type API struct {
	engine   *marketgate.Engine
	users    marketgate.IdentityProvider
	products marketgate.ProductOwnerLookup
	logger   *slog.Logger
	metrics  http.Handler
	ready    []Pinger
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the access and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *API) { a.metrics = h }
}

// WithReadiness adds dependencies checked by GET /readyz.
func WithReadiness(p ...Pinger) Option {
	return func(a *API) { a.ready = append(a.ready, p...) }
}

// New wires the handlers. users and products are the same stores the
// engine was built with.
func New(engine *marketgate.Engine, users marketgate.IdentityProvider, products marketgate.ProductOwnerLookup, opts ...Option) *API {
	a := &API{
		engine:   engine,
		users:    users,
		products: products,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the routed handler.
func (a *API) Handler() http.Handler {
	cfg := a.engine.Config()
	r := chi.NewRouter()

	r.Use(RequestID, Logging(a.logger), SecurityHeaders, middleware.RequestMeta(a.engine))

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(a.engine, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, middleware.WithScope("api")))

		r.Route("/auth", func(r chi.Router) {
			// Only credential-issuing routes carry the stricter budget.
			strict := middleware.RateLimit(a.engine, cfg.RateLimit.AuthMaxRequests, cfg.RateLimit.AuthWindow, middleware.WithScope("auth"))
			r.With(strict).Post("/register", a.register)
			r.With(strict).Post("/login", a.login)
			r.Post("/logout", a.logout)
			r.With(middleware.Authenticate(a.engine)).Get("/me", a.me)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(a.engine))

			r.With(
				middleware.RequireRoles(a.engine, permission.Seller, permission.Admin),
				middleware.RequireProductOwnership(a.engine, urlParam("productID")),
			).Get("/seller/products/{productID}", a.sellerProduct)

			r.With(
				middleware.RequireRoles(a.engine, permission.All()...),
				middleware.RequireOwnership(a.engine, profileOwner),
			).Get("/users/{userID}/profile", a.profile)

			r.Route("/admin", func(r chi.Router) {
				r.Use(
					middleware.RequireRoles(a.engine, permission.Admin),
					middleware.RequireFreshSession(a.engine, 0),
				)
				r.Post("/users/{userID}/ban", a.setActive(false))
				r.Post("/users/{userID}/unban", a.setActive(true))
				r.Get("/security-logs", a.securityLogs)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, marketgate.ErrResourceNotFound)
	})
	return r
}

func urlParam(name string) middleware.ParamFunc {
	return func(r *http.Request) string {
		return chi.URLParam(r, name)
	}
}

func profileOwner(r *http.Request) (string, string, error) {
	id := chi.URLParam(r, "userID")
	return "user:" + id, id, nil
}
