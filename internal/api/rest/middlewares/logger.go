package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/CameronXie/order-management/internal/requestid"
)

// RequestLoggerMiddleware logs one line per request once it completes.
type RequestLoggerMiddleware struct {
	logger *slog.Logger
}

func (m *RequestLoggerMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		m.logger.Log(
			r.Context(),
			level,
			"request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestid.FromContext(r.Context()),
		)
	})
}

func NewRequestLoggerMiddleware(logger *slog.Logger) Middleware {
	return &RequestLoggerMiddleware{logger: logger}
}
