// Package rest assembles the HTTP routers of the identity and order services.
package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CameronXie/order-management/internal/api/rest/handlers"
	"github.com/CameronXie/order-management/internal/api/rest/middlewares"
	"github.com/CameronXie/order-management/internal/api/rest/response"
)

type IdentityRouterConfig struct {
	Users                    *handlers.UserHandlers
	AuthenticationMiddleware middlewares.Middleware
	InternalAPIKeyMiddleware middlewares.Middleware
	Metrics                  *middlewares.MetricsMiddleware
	Logger                   *slog.Logger
}

type OrdersRouterConfig struct {
	Orders                   *handlers.OrderHandlers
	AuthenticationMiddleware middlewares.Middleware
	Metrics                  *middlewares.MetricsMiddleware
	Logger                   *slog.Logger
}

// NewIdentityRouter routes the public user API and the internal lookup.
func NewIdentityRouter(cfg *IdentityRouterConfig) http.Handler {
	router := newRouter(cfg.Metrics, cfg.Logger)

	router.Route("/v1/users", func(r chi.Router) {
		r.Post("/register", cfg.Users.Register)
		r.Post("/login", cfg.Users.Login)

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticationMiddleware.Handle)
			r.Get("/", cfg.Users.ListUsers)
			r.Get("/me", cfg.Users.GetProfile)
			r.Patch("/me", cfg.Users.UpdateProfile)
		})
	})

	router.With(cfg.InternalAPIKeyMiddleware.Handle).Get("/v1/internal/users/{id}", cfg.Users.GetInternalUser)

	return router
}

// NewOrdersRouter routes the order API. Every order route requires a token.
func NewOrdersRouter(cfg *OrdersRouterConfig) http.Handler {
	router := newRouter(cfg.Metrics, cfg.Logger)

	router.Route("/v1/orders", func(r chi.Router) {
		r.Use(cfg.AuthenticationMiddleware.Handle)
		r.Post("/", cfg.Orders.Create)
		r.Get("/", cfg.Orders.List)
		r.Get("/{id}", cfg.Orders.Get)
		r.Patch("/{id}/status", cfg.Orders.UpdateStatus)
		r.Delete("/{id}", cfg.Orders.Cancel)
	})

	return router
}

func newRouter(metrics *middlewares.MetricsMiddleware, logger *slog.Logger) chi.Router {
	router := chi.NewRouter()

	router.Use(
		middlewares.NewRequestIDMiddleware().Handle,
		middlewares.NewRequestLoggerMiddleware(logger).Handle,
		middlewares.NewRecovererMiddleware(logger).Handle,
		metrics.Handle,
	)

	router.NotFound(response.NotFound)
	router.MethodNotAllowed(response.MethodNotAllowed)

	router.Get("/v1/health", handlers.Health)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	return router
}
