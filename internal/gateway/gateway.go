// Package gateway fronts the identity and order services with a single entry point.
package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/CameronXie/order-management/internal/api/rest/handlers"
	"github.com/CameronXie/order-management/internal/api/rest/middlewares"
	"github.com/CameronXie/order-management/internal/api/rest/response"
	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/requestid"
)

const upstreamUnavailableMessage = "upstream service unavailable"

type Config struct {
	UsersServiceURL          string
	OrdersServiceURL         string
	AuthenticationMiddleware middlewares.Middleware
	RateLimitMiddleware      middlewares.Middleware
	Metrics                  *middlewares.MetricsMiddleware
	Logger                   *slog.Logger
}

// New routes /v1/users to the identity service and /v1/orders, behind token verification, to the order service.
func New(cfg *Config) (http.Handler, error) {
	usersProxy, err := newProxy("users", cfg.UsersServiceURL, cfg.Logger)
	if err != nil {
		return nil, err
	}

	ordersProxy, err := newProxy("orders", cfg.OrdersServiceURL, cfg.Logger)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middlewares.NewRequestIDMiddleware().Handle,
		middlewares.NewRequestLoggerMiddleware(cfg.Logger).Handle,
		middlewares.NewRecovererMiddleware(cfg.Logger).Handle,
		cfg.Metrics.Handle,
		cfg.RateLimitMiddleware.Handle,
	)

	router.NotFound(response.NotFound)
	router.MethodNotAllowed(response.MethodNotAllowed)

	router.Get("/v1/health", handlers.Health)
	router.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	router.Handle("/v1/users", usersProxy)
	router.Handle("/v1/users/*", usersProxy)

	router.Group(func(r chi.Router) {
		r.Use(cfg.AuthenticationMiddleware.Handle)
		r.Handle("/v1/orders", ordersProxy)
		r.Handle("/v1/orders/*", ordersProxy)
	})

	return router, nil
}

// newProxy forwards requests to target with the request id attached.
// The request id middleware owns the response header, so the upstream copy is dropped.
func newProxy(name, target string, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	upstream, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse %s service url: %w", name, err)
	}

	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("%s service url %q must be absolute", name, target)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			pr.Out.Header.Set(requestid.Header, requestid.FromContext(pr.In.Context()))
		},
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del(requestid.Header)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(
				r.Context(),
				"upstream request failed",
				"upstream", name,
				"error", err,
				"request_id", requestid.FromContext(r.Context()),
			)
			response.Failure(w, apperror.CodeUpstreamUnavailable, upstreamUnavailableMessage)
		},
	}, nil
}
