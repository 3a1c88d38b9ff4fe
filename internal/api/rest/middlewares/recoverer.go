package middlewares

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/CameronXie/order-management/internal/api/rest/response"
	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/requestid"
)

// RecovererMiddleware turns a panic into an INTERNAL_ERROR response.
type RecovererMiddleware struct {
	logger *slog.Logger
}

func (m *RecovererMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			m.logger.ErrorContext(
				r.Context(),
				"recovered from panic",
				"panic", rec,
				"stack", string(debug.Stack()),
				"request_id", requestid.FromContext(r.Context()),
			)
			response.Failure(w, apperror.CodeInternal, apperror.InternalMessage)
		}()

		next.ServeHTTP(w, r)
	})
}

func NewRecovererMiddleware(logger *slog.Logger) Middleware {
	return &RecovererMiddleware{logger: logger}
}
