package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/CameronXie/order-management/internal/api/rest/response"
	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/token"
)

// TokenVerifier validates the Authorization header of a request.
type TokenVerifier interface {
	FromHeader(authHeader string) (*token.Claims, error)
}

// JWTAuthenticationMiddleware verifies the bearer token and attaches its claims to the request context.
// Access decisions are made later by the services, which know the resource owner.
type JWTAuthenticationMiddleware struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// Handle rejects requests without a valid token.
func (m *JWTAuthenticationMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.verifier.FromHeader(r.Header.Get("Authorization"))
		if err != nil {
			if !apperror.Is(err, apperror.CodeAuthRequired) {
				m.logger.ErrorContext(r.Context(), "failed to verify token", "error", err)
			}

			response.Error(w, r, m.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(token.NewContext(r.Context(), claims)))
	})
}

// NewJWTAuthenticationMiddleware returns a Middleware backed by verifier.
func NewJWTAuthenticationMiddleware(verifier TokenVerifier, logger *slog.Logger) Middleware {
	return &JWTAuthenticationMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}
