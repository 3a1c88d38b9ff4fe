package middlewares

import (
	"net/http"

	"github.com/CameronXie/order-management/internal/requestid"
)

const maxRequestIDLength = 128

// RequestIDMiddleware keeps the caller's request id, or assigns one, and echoes it on the response.
type RequestIDMiddleware struct{}

func (RequestIDMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestid.Header)
		if id == "" || len(id) > maxRequestIDLength {
			id = requestid.New()
			r.Header.Set(requestid.Header, id)
		}

		w.Header().Set(requestid.Header, id)
		next.ServeHTTP(w, r.WithContext(requestid.NewContext(r.Context(), id)))
	})
}

func NewRequestIDMiddleware() Middleware {
	return RequestIDMiddleware{}
}
