package middlewares

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/CameronXie/order-management/internal/api/rest/response"
	"github.com/CameronXie/order-management/internal/apperror"
)

const (
	// InternalAPIKeyHeader carries the shared service credential.
	InternalAPIKeyHeader = "X-Internal-API-Key"

	invalidServiceCredentialMessage = "invalid service credential"
)

// InternalAPIKeyMiddleware admits only callers presenting the shared service credential.
type InternalAPIKeyMiddleware struct {
	apiKey []byte
	logger *slog.Logger
}

func (m *InternalAPIKeyMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := []byte(r.Header.Get(InternalAPIKeyHeader))
		if len(m.apiKey) == 0 || subtle.ConstantTimeCompare(presented, m.apiKey) != 1 {
			m.logger.WarnContext(r.Context(), "rejected internal request", "path", r.URL.Path)
			response.Failure(w, apperror.CodeForbidden, invalidServiceCredentialMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewInternalAPIKeyMiddleware returns a Middleware checking for apiKey. An empty key rejects everything.
func NewInternalAPIKeyMiddleware(apiKey string, logger *slog.Logger) Middleware {
	return &InternalAPIKeyMiddleware{apiKey: []byte(apiKey), logger: logger}
}
